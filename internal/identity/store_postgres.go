package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// - The pgx pool is owned by the caller; this store must NOT close it.
// - SwapRefreshTokenHash is a single conditional UPDATE, so rotation is
//   serialized per account by the database without explicit locking.
// - Unique violations are mapped to ConflictError with a logical field name.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresStore", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresStore{pool: pool}, nil
}

const accountColumns = `id, username, email, fullname, avatar_url, avatar_object_id,
cover_url, cover_object_id, password_hash, refresh_token_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.Fullname,
		&a.AvatarURL, &a.AvatarObjectID, &a.CoverURL, &a.CoverObjectID,
		&a.PasswordHash, &a.RefreshTokenHash, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// Create inserts a new account row.
func (s *PostgresStore) Create(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.Create"

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

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (
		     id, username, email, fullname, avatar_url, avatar_object_id,
		     cover_url, cover_object_id, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		   RETURNING `+accountColumns,
		id, username, email, fullname,
		in.AvatarURL, in.AvatarObjectID, in.CoverURL, in.CoverObjectID,
		in.PasswordHash, now,
	)

	a, err := scanAccount(row)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}
	return a, nil
}

// FindByID loads an account by id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"

	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// FindByIdentifier resolves an account by normalized username or email.
func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	const op = "identity.FindByIdentifier"

	norm := NormalizeUsername(identifier)
	if norm == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty identifier"}
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE username = $1 OR email = $1`, norm)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// UpdateProfile updates fullname and/or email. Nil fields are left unchanged.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Account, error) {
	const op = "identity.UpdateProfile"

	var email *string
	if in.Email != nil {
		e := NormalizeEmail(*in.Email)
		if e == "" {
			return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty email"}
		}
		email = &e
	}
	var fullname *string
	if in.Fullname != nil {
		f := strings.TrimSpace(*in.Fullname)
		if f == "" {
			return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty fullname"}
		}
		fullname = &f
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE users
		    SET fullname = COALESCE($2, fullname),
		        email = COALESCE($3, email),
		        updated_at = $4
		  WHERE id = $1
		  RETURNING `+accountColumns,
		id, fullname, email, time.Now().UTC(),
	)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}
	return a, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"

	if strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty password hash"}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// UpdateAvatar replaces the avatar URL and storage object id.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, id, url, objectID string) (Account, error) {
	return s.updateMedia(ctx, "identity.UpdateAvatar", "avatar_url", "avatar_object_id", id, url, objectID)
}

// UpdateCoverImage replaces the cover image URL and storage object id.
func (s *PostgresStore) UpdateCoverImage(ctx context.Context, id, url, objectID string) (Account, error) {
	return s.updateMedia(ctx, "identity.UpdateCoverImage", "cover_url", "cover_object_id", id, url, objectID)
}

func (s *PostgresStore) updateMedia(ctx context.Context, op, urlCol, idCol, id, url, objectID string) (Account, error) {
	// Column names are fixed by the two exported callers, never user input.
	row := s.pool.QueryRow(ctx,
		`UPDATE users SET `+urlCol+` = $2, `+idCol+` = $3, updated_at = $4
		  WHERE id = $1
		  RETURNING `+accountColumns,
		id, url, objectID, time.Now().UTC(),
	)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// SetRefreshTokenHash unconditionally overwrites the stored refresh hash.
func (s *PostgresStore) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	const op = "identity.SetRefreshTokenHash"

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// SwapRefreshTokenHash is the rotation compare-and-swap. The UPDATE succeeds
// only while oldHash is still the stored value; of two concurrent rotations
// presenting the same token, exactly one row-level winner exists.
func (s *PostgresStore) SwapRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET refresh_token_hash = $3, updated_at = $4
		  WHERE id = $1 AND refresh_token_hash = $2`,
		id, oldHash, newHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notActiveSwap()
	}
	return nil
}

// ClearRefreshTokenHash nulls the stored refresh hash (logout).
func (s *PostgresStore) ClearRefreshTokenHash(ctx context.Context, id string) error {
	const op = "identity.ClearRefreshTokenHash"

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET refresh_token_hash = NULL, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// classifyUniqueViolation maps a pg unique violation to a logical field name.
func classifyUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	cn := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(cn, "username"):
		return "username", true
	case strings.Contains(cn, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
