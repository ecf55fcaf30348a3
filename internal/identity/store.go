package identity

import (
	"context"
	"time"
)

// CreateAccountInput carries everything needed to create an account.
// PasswordHash must already be an encoded Argon2id hash; this package never
// sees plaintext passwords.
type CreateAccountInput struct {
	Fullname       string
	Username       string
	Email          string
	PasswordHash   string
	AvatarURL      string
	AvatarObjectID string
	CoverURL       string
	CoverObjectID  string
	Now            time.Time
}

// UpdateProfileInput updates mutable profile fields. Nil means "leave as is".
type UpdateProfileInput struct {
	Fullname *string
	Email    *string
}

// Store is the durable account store ("UserStore").
//
// The three refresh-token methods implement the single-session model:
// exactly one hash (or none) is valid per account at any time.
type Store interface {
	Create(ctx context.Context, in CreateAccountInput) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	// FindByIdentifier resolves an account whose normalized username OR
	// email equals the normalized identifier.
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)

	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Account, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, url, objectID string) (Account, error)
	UpdateCoverImage(ctx context.Context, id, url, objectID string) (Account, error)

	// SetRefreshTokenHash unconditionally overwrites the stored hash (login).
	// Any previously issued refresh token becomes permanently invalid here.
	SetRefreshTokenHash(ctx context.Context, id, hash string) error
	// SwapRefreshTokenHash replaces oldHash with newHash only if oldHash is
	// still the stored value (rotation). Returns ErrNotActive otherwise, so
	// concurrent rotations with the same token have exactly one winner.
	SwapRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error
	// ClearRefreshTokenHash sets the stored hash to null (logout).
	ClearRefreshTokenHash(ctx context.Context, id string) error
}
