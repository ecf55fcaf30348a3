package session

import (
	"context"

	"github.com/Myash21/vidtube/internal/identity"
)

// Store is the slice of the account store the session subsystem needs.
// It is satisfied by identity.PostgresStore and identity.MemoryStore.
type Store interface {
	FindByID(ctx context.Context, id string) (identity.Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (identity.Account, error)

	SetRefreshTokenHash(ctx context.Context, id, hash string) error
	SwapRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error
	ClearRefreshTokenHash(ctx context.Context, id string) error

	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
