package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used for tests and DB-less dev mode.
// All refresh-token transitions happen under one mutex, so the
// compare-and-swap semantics match the Postgres implementation.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account // by id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (s *MemoryStore) Create(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	username := NormalizeUsername(in.Username)
	email := NormalizeEmail(in.Email)
	fullname := strings.TrimSpace(in.Fullname)
	if username == "" || email == "" || fullname == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "fullname, username and email are required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == username {
			return Account{}, ConflictError{Op: op, Field: "username"}
		}
		if a.Email == email {
			return Account{}, ConflictError{Op: op, Field: "email"}
		}
	}

	a := Account{
		ID:             id,
		Username:       username,
		Email:          email,
		Fullname:       fullname,
		AvatarURL:      in.AvatarURL,
		AvatarObjectID: in.AvatarObjectID,
		CoverURL:       in.CoverURL,
		CoverObjectID:  in.CoverObjectID,
		PasswordHash:   in.PasswordHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.accounts[id] = &a
	return a, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: "identity.FindByID", Resource: "account"}
	}
	return *a, nil
}

func (s *MemoryStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	const op = "identity.FindByIdentifier"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	norm := NormalizeUsername(identifier)
	if norm == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty identifier"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == norm || a.Email == norm {
			return *a, nil
		}
	}
	return Account{}, NotFoundError{Op: op, Resource: "account"}
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Account, error) {
	const op = "identity.UpdateProfile"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}

	if in.Email != nil {
		e := NormalizeEmail(*in.Email)
		if e == "" {
			return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty email"}
		}
		for oid, other := range s.accounts {
			if oid != id && other.Email == e {
				return Account{}, ConflictError{Op: op, Field: "email"}
			}
		}
		a.Email = e
	}
	if in.Fullname != nil {
		f := strings.TrimSpace(*in.Fullname)
		if f == "" {
			return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty fullname"}
		}
		a.Fullname = f
	}
	a.UpdatedAt = time.Now().UTC()
	return *a, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return NotFoundError{Op: "identity.UpdatePasswordHash", Resource: "account"}
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateAvatar(ctx context.Context, id, url, objectID string) (Account, error) {
	return s.updateMedia(ctx, "identity.UpdateAvatar", id, func(a *Account) {
		a.AvatarURL = url
		a.AvatarObjectID = objectID
	})
}

func (s *MemoryStore) UpdateCoverImage(ctx context.Context, id, url, objectID string) (Account, error) {
	return s.updateMedia(ctx, "identity.UpdateCoverImage", id, func(a *Account) {
		a.CoverURL = url
		a.CoverObjectID = objectID
	})
}

func (s *MemoryStore) updateMedia(ctx context.Context, op, id string, apply func(*Account)) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	apply(a)
	a.UpdatedAt = time.Now().UTC()
	return *a, nil
}

func (s *MemoryStore) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return NotFoundError{Op: "identity.SetRefreshTokenHash", Resource: "account"}
	}
	h := hash
	a.RefreshTokenHash = &h
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SwapRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.RefreshTokenHash == nil || *a.RefreshTokenHash != oldHash {
		return notActiveSwap()
	}
	h := newHash
	a.RefreshTokenHash = &h
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ClearRefreshTokenHash(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return NotFoundError{Op: "identity.ClearRefreshTokenHash", Resource: "account"}
	}
	a.RefreshTokenHash = nil
	a.UpdatedAt = time.Now().UTC()
	return nil
}
