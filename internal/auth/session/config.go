package session

import (
	"crypto/subtle"
	"os"
	"strings"
	"time"

	"github.com/Myash21/vidtube/internal/security/token"
)

// Config defines all runtime configuration for the session subsystem.
//
// Secrets are injected here at startup and passed to the codec at
// construction; nothing in this package reads the environment after load.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token kinds.
	Issuer string

	// AccessSecret and RefreshSecret sign the two token kinds. They must be
	// distinct so that an access-secret leak cannot mint refresh tokens or
	// vice versa.
	AccessSecret  []byte
	RefreshSecret []byte

	// AccessTTL bounds the blast radius of a leaked access token.
	AccessTTL time.Duration
	// RefreshTTL is the lifetime of a refresh token (days-scale).
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration

	// RefreshHMACKey keys the server-side refresh-token digest. Empty
	// selects the SHA-256 dev fallback.
	RefreshHMACKey []byte
}

// DefaultConfig returns defaults suitable for development; secrets must
// still be provided.
func DefaultConfig() Config {
	return Config{
		Issuer:     "vidtube",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// Validate checks the invariants that make the two-secret model hold.
func (c Config) Validate() error {
	if len(c.AccessSecret) == 0 || len(c.RefreshSecret) == 0 {
		return ErrConfig
	}
	if len(c.AccessSecret) == len(c.RefreshSecret) &&
		subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if err := token.ValidateHMACKey(c.RefreshHMACKey); err != nil {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - VIDTUBE_ACCESS_TOKEN_SECRET
//   - VIDTUBE_REFRESH_TOKEN_SECRET (must differ from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - VIDTUBE_AUTH_ISSUER
//   - VIDTUBE_ACCESS_TOKEN_TTL
//   - VIDTUBE_REFRESH_TOKEN_TTL
//   - VIDTUBE_AUTH_CLOCK_SKEW
//   - VIDTUBE_TOKEN_HMAC_KEY (>= 32 bytes when set)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_ACCESS_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_REFRESH_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_AUTH_CLOCK_SKEW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessSecret = []byte(strings.TrimSpace(os.Getenv("VIDTUBE_ACCESS_TOKEN_SECRET")))
	cfg.RefreshSecret = []byte(strings.TrimSpace(os.Getenv("VIDTUBE_REFRESH_TOKEN_SECRET")))

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_TOKEN_HMAC_KEY")); v != "" {
		cfg.RefreshHMACKey = []byte(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
