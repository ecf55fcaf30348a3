package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Myash21/vidtube/internal/identity"
	"github.com/Myash21/vidtube/internal/security/password"
	"github.com/Myash21/vidtube/internal/security/token"
)

// Issued is the result of a login or rotation: a fresh access/refresh pair.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Service implements the high-level session operations: Login, Authenticate,
// Rotate, Logout, and ChangePassword.
type Service struct {
	cfg    Config
	codec  Codec
	store  Store
	hasher password.Config

	// dummyHash makes the missing-account path cost the same as a real
	// password verification.
	dummyHash string
}

// NewService constructs a Service from validated configuration.
func NewService(cfg Config, store Store, codec Codec, hasher password.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || codec == nil {
		return nil, ErrConfig
	}

	s := &Service{cfg: cfg, codec: codec, store: store, hasher: hasher}
	if h, err := hasher.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = h
	}
	return s, nil
}

// HashPassword hashes a plaintext password for account creation.
// Policy violations (too short/long) propagate as-is for 400-level mapping.
func (s *Service) HashPassword(plaintext string) (string, error) {
	return s.hasher.Hash(plaintext)
}

// Login resolves the account by username or email (case-insensitive),
// verifies the password, mints a token pair, and persists the refresh hash.
//
// The write in step 4 is the point at which any previously issued refresh
// token for the account becomes permanently invalid. Missing account and
// wrong password are distinguishable via errors.Is internally but both carry
// ErrUnauthorized for the boundary.
func (s *Service) Login(ctx context.Context, now time.Time, identifier, plaintext string) (Issued, identity.PublicAccount, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plaintext == "" {
		return Issued{}, identity.PublicAccount{}, ErrUnauthorized
	}

	acct, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(s.dummyHash, plaintext)
			}
			return Issued{}, identity.PublicAccount{}, fmt.Errorf("login: %s: %w", "account not found", ErrUnauthorized)
		}
		return Issued{}, identity.PublicAccount{}, err
	}

	ok, err := s.hasher.Verify(acct.PasswordHash, plaintext)
	if err != nil || !ok {
		// A malformed stored hash is an internal problem, but the caller of
		// login must not learn it differs from a wrong password.
		return Issued{}, identity.PublicAccount{}, fmt.Errorf("login: %s: %w", "password mismatch", ErrUnauthorized)
	}

	issued, err := s.mintAndPersist(ctx, now, acct, "")
	if err != nil {
		return Issued{}, identity.PublicAccount{}, err
	}
	return issued, acct.Public(), nil
}

// Authenticate validates an inbound access token and resolves it to a
// redacted account. Pure read path; every failure is ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (identity.Account, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return identity.Account{}, ErrUnauthorized
	}

	claims, err := s.codec.Verify(accessToken, KindAccess)
	if err != nil {
		return identity.Account{}, fmt.Errorf("authenticate: %v: %w", err, ErrUnauthorized)
	}

	acct, err := s.store.FindByID(ctx, claims.AccountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Account{}, fmt.Errorf("authenticate: %s: %w", "account gone", ErrUnauthorized)
		}
		return identity.Account{}, err
	}

	return redact(acct), nil
}

// Rotate validates an inbound refresh token against the persisted value and
// atomically replaces the session.
//
// The compare-and-swap in the store is the replay defense: a
// cryptographically valid but superseded token fails there, and of two
// concurrent rotations with the same token at most one wins.
func (s *Service) Rotate(ctx context.Context, now time.Time, refreshToken string) (Issued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return Issued{}, ErrUnauthorized
	}

	claims, err := s.codec.Verify(refreshToken, KindRefresh)
	if err != nil {
		return Issued{}, fmt.Errorf("rotate: %v: %w", err, ErrUnauthorized)
	}

	acct, err := s.store.FindByID(ctx, claims.AccountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Issued{}, fmt.Errorf("rotate: %s: %w", "account gone", ErrUnauthorized)
		}
		return Issued{}, err
	}

	presentedHash := token.HashRefreshTokenHex(refreshToken, s.cfg.RefreshHMACKey)

	issued, err := s.mintAndPersist(ctx, now, acct, presentedHash)
	if err != nil {
		if identity.IsNotActive(err) {
			// Stale, superseded, or cleared token; possibly a replayed one.
			return Issued{}, fmt.Errorf("rotate: %s: %w", "refresh token superseded", ErrUnauthorized)
		}
		return Issued{}, err
	}
	return issued, nil
}

// Logout clears the persisted refresh token. Outstanding access tokens stay
// valid until their own expiry; only the rotation path is cut.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	err := s.store.ClearRefreshTokenHash(ctx, accountID)
	if err != nil && identity.IsNotFound(err) {
		return fmt.Errorf("logout: %s: %w", "account gone", ErrUnauthorized)
	}
	return err
}

// ChangePassword verifies the current password and installs a new hash.
// The active session is kept; the refresh token is untouched.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPlaintext, newPlaintext string) error {
	acct, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return fmt.Errorf("change password: %s: %w", "account gone", ErrUnauthorized)
		}
		return err
	}

	ok, err := s.hasher.Verify(acct.PasswordHash, oldPlaintext)
	if err != nil || !ok {
		return fmt.Errorf("change password: %s: %w", "password mismatch", ErrUnauthorized)
	}

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, accountID, hash)
}

// mintAndPersist mints a fresh pair and persists the refresh hash in a
// single store write. With a non-empty swapFrom the write is a
// compare-and-swap (rotation); otherwise it overwrites (login).
func (s *Service) mintAndPersist(ctx context.Context, now time.Time, acct identity.Account, swapFrom string) (Issued, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	access, accessExp, err := s.codec.IssueAccess(acct.ID, acct.Username, acct.Email, now)
	if err != nil {
		return Issued{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(acct.ID, now)
	if err != nil {
		return Issued{}, err
	}

	newHash := token.HashRefreshTokenHex(refresh, s.cfg.RefreshHMACKey)
	if swapFrom == "" {
		err = s.store.SetRefreshTokenHash(ctx, acct.ID, newHash)
	} else {
		err = s.store.SwapRefreshTokenHash(ctx, acct.ID, swapFrom, newHash)
	}
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

func redact(a identity.Account) identity.Account {
	a.PasswordHash = ""
	a.RefreshTokenHash = nil
	return a
}
