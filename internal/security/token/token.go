package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrHMACKeyTooShort is returned when an HMAC key below the minimum length
// is supplied.
var ErrHMACKeyTooShort = errors.New("token hmac key too short")

// MinHMACKeyBytes is the minimum accepted HMAC-SHA256 key length.
const MinHMACKeyBytes = 32

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// ValidateHMACKey enforces the minimum key length for keyed hashing.
// An empty key is valid and selects the plain SHA-256 fallback.
func ValidateHMACKey(key []byte) error {
	if len(key) > 0 && len(key) < MinHMACKeyBytes {
		return ErrHMACKeyTooShort
	}
	return nil
}

// HashRefreshTokenHex produces the server-stored digest for a refresh token.
// With a non-empty key it uses HMAC-SHA256; otherwise plain SHA-256
// (dev fallback). The key is injected by the caller, never read from the
// environment here.
func HashRefreshTokenHex(tok string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, key)
}
