package token

import "testing"

func TestHashRefreshTokenHex_Fallback(t *testing.T) {
	a := HashRefreshTokenHex("tok", nil)
	b := HashSHA256Hex("tok")
	if a != b {
		t.Fatalf("expected SHA-256 fallback without key")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashRefreshTokenHex_Keyed(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	a := HashRefreshTokenHex("tok", key)
	if a == HashSHA256Hex("tok") {
		t.Fatalf("keyed digest must differ from plain SHA-256")
	}
	if a != HashHMACSHA256Hex("tok", key) {
		t.Fatalf("keyed digest must be HMAC-SHA256")
	}
}

func TestValidateHMACKey(t *testing.T) {
	if err := ValidateHMACKey(nil); err != nil {
		t.Fatalf("empty key must be valid (fallback mode): %v", err)
	}
	if err := ValidateHMACKey([]byte("short")); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
	if err := ValidateHMACKey([]byte("0123456789abcdef0123456789abcdef")); err != nil {
		t.Fatalf("32-byte key must be valid: %v", err)
	}
}
