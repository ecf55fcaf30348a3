package session

import (
	"errors"
	"testing"
	"time"
)

func testTokenConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-for-tests")
	cfg.RefreshSecret = []byte("refresh-secret-for-tests")
	return cfg
}

func TestJWTCodec_IssueAndVerifyAccess(t *testing.T) {
	codec, err := NewJWTCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := codec.IssueAccess("01HZZZZZZZZZZZZZZZZZZZZZZZ", "ada", "ada@x.io", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := codec.Verify(tok, KindAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AccountID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" || claims.Username != "ada" || claims.Email != "ada@x.io" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestJWTCodec_RefreshCarriesOnlyAccountID(t *testing.T) {
	codec, err := NewJWTCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	tok, _, err := codec.IssueRefresh("acct-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims, err := codec.Verify(tok, KindRefresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("account id mismatch: %q", claims.AccountID)
	}
	if claims.Username != "" || claims.Email != "" {
		t.Fatalf("refresh token must not carry identity claims: %+v", claims)
	}
}

func TestJWTCodec_CrossKindFails(t *testing.T) {
	codec, err := NewJWTCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}
	now := time.Now().UTC()

	access, _, err := codec.IssueAccess("a1", "ada", "ada@x.io", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := codec.IssueRefresh("a1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// Distinct secrets: verification against the other kind must fail at the
	// signature check.
	if _, err := codec.Verify(access, KindRefresh); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
	if _, err := codec.Verify(refresh, KindAccess); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestJWTCodec_Expired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = time.Nanosecond
	cfg.ClockSkew = 0

	codec, err := NewJWTCodec(cfg)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	tok, _, err := codec.IssueAccess("a1", "ada", "ada@x.io", time.Now().UTC().Add(-time.Second))
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := codec.Verify(tok, KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTCodec_Malformed(t *testing.T) {
	codec, err := NewJWTCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}
	if _, err := codec.Verify("garbage", KindAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestJWTCodec_RefreshTokensAreUnique(t *testing.T) {
	codec, err := NewJWTCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	a, _, err := codec.IssueRefresh("a1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	b, _, err := codec.IssueRefresh("a1", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if a == b {
		t.Fatalf("two refresh tokens minted at the same instant must differ")
	}
}

func TestConfig_RejectsSharedSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte("same-secret")
	cfg.RefreshSecret = []byte("same-secret")

	if err := cfg.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for shared secret, got %v", err)
	}
}
