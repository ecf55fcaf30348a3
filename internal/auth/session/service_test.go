package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Myash21/vidtube/internal/identity"
	"github.com/Myash21/vidtube/internal/security/password"
)

func testHasher() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func newTestService(t *testing.T) (*Service, *identity.MemoryStore) {
	t.Helper()

	store := identity.NewMemoryStore()
	codec, err := NewJWTCodec(testTokenConfig())
	require.NoError(t, err)

	svc, err := NewService(testTokenConfig(), store, codec, testHasher())
	require.NoError(t, err)
	return svc, store
}

func createAccount(t *testing.T, svc *Service, store *identity.MemoryStore, username, email, plaintext string) identity.Account {
	t.Helper()

	hash, err := svc.HashPassword(plaintext)
	require.NoError(t, err)

	acct, err := store.Create(context.Background(), identity.CreateAccountInput{
		Fullname:     "Ada Lovelace",
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    "https://cdn.example/avatar.png",
	})
	require.NoError(t, err)
	return acct
}

func TestLoginThenAuthenticate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	acct := createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	now := time.Now().UTC()
	issued, view, err := svc.Login(ctx, now, "ada", "hunter2boogaloo")
	require.NoError(t, err)
	require.Equal(t, acct.ID, view.ID)
	require.NotEmpty(t, issued.AccessToken)
	require.NotEmpty(t, issued.RefreshToken)

	got, err := svc.Authenticate(ctx, issued.AccessToken)
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)
	require.Empty(t, got.PasswordHash, "authenticate must redact the password hash")
	require.Nil(t, got.RefreshTokenHash, "authenticate must redact the refresh hash")
}

func TestLoginByEmailAndCaseInsensitive(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	_, _, err := svc.Login(ctx, time.Now().UTC(), "ada@x.io", "hunter2boogaloo")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, time.Now().UTC(), "ADA", "hunter2boogaloo")
	require.NoError(t, err)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	_, _, err := svc.Login(ctx, time.Now().UTC(), "nobody", "hunter2boogaloo")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.Login(ctx, time.Now().UTC(), "ada", "wrong password")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRotateReplacesToken(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	issued, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, time.Now().UTC(), issued.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, issued.RefreshToken, rotated.RefreshToken,
		"rotation must return a refresh token different from the one presented")

	// The token that authorized the rotation is now superseded.
	_, err = svc.Rotate(ctx, time.Now().UTC(), issued.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// The current token still works.
	_, err = svc.Rotate(ctx, time.Now().UTC(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRotateAfterLoginInvalidatesOldSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	first, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	// A second login overwrites the stored hash; the first session's refresh
	// token is dead even though it is cryptographically valid.
	_, _, err = svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, time.Now().UTC(), first.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutCutsRotation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	acct := createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	issued, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, acct.ID))

	_, err = svc.Rotate(ctx, time.Now().UTC(), issued.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Access tokens are not individually revocable; the outstanding one
	// stays valid until expiry.
	_, err = svc.Authenticate(ctx, issued.AccessToken)
	require.NoError(t, err)
}

func TestAuthenticateRejectsExpiredAccessToken(t *testing.T) {
	store := identity.NewMemoryStore()

	cfg := testTokenConfig()
	cfg.AccessTTL = time.Nanosecond
	cfg.ClockSkew = 0
	codec, err := NewJWTCodec(cfg)
	require.NoError(t, err)

	svc, err := NewService(cfg, store, codec, testHasher())
	require.NoError(t, err)

	ctx := context.Background()
	acct := createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	issued, _, err := svc.Login(ctx, time.Now().UTC().Add(-time.Minute), "ada", "hunter2boogaloo")
	require.NoError(t, err)
	require.NotEmpty(t, acct.ID)

	_, err = svc.Authenticate(ctx, issued.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRotateRejectsAccessToken(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	issued, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	// An access token presented on the rotation path is signed with the
	// wrong secret for that path.
	_, err = svc.Rotate(ctx, time.Now().UTC(), issued.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestConcurrentRotateHasOneWinner(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	issued, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Rotate(ctx, time.Now().UTC(), issued.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrUnauthorized)
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent rotation may win")
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	acct := createAccount(t, svc, store, "ada", "ada@x.io", "hunter2boogaloo")

	require.ErrorIs(t, svc.ChangePassword(ctx, acct.ID, "wrong", "newpassword123"), ErrUnauthorized)
	require.NoError(t, svc.ChangePassword(ctx, acct.ID, "hunter2boogaloo", "newpassword123"))

	_, _, err := svc.Login(ctx, time.Now().UTC(), "ada", "hunter2boogaloo")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.Login(ctx, time.Now().UTC(), "ada", "newpassword123")
	require.NoError(t, err)
}
