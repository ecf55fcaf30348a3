package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls transport behavior and request size limits.
type Config struct {
	// CookieSecure marks session cookies Secure; on in production.
	CookieSecure bool
	CookiePath   string

	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// LoadConfigFromEnv loads API config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		CookieSecure:   envBool("VIDTUBE_COOKIE_SECURE", envString("VIDTUBE_ENV", "development") == "production"),
		CookiePath:     envString("VIDTUBE_COOKIE_PATH", "/"),
		MaxBodyBytes:   envInt64("VIDTUBE_MAX_BODY_BYTES", 1<<20),     // 1 MiB
		MaxUploadBytes: envInt64("VIDTUBE_MAX_UPLOAD_BYTES", 200<<20), // 200 MiB
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 << 20
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
