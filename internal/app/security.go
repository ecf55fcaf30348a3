package app

import (
	"errors"

	"github.com/Myash21/vidtube/internal/auth/session"
	"github.com/Myash21/vidtube/internal/security/token"
)

// ValidateSecurityConfig enforces the startup security policy. With
// RequireTokenHMAC set, startup fails unless a valid HMAC key is configured.
func ValidateSecurityConfig(cfg Config, sessCfg session.Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	if len(sessCfg.RefreshHMACKey) == 0 {
		return errors.New("security policy: VIDTUBE_REQUIRE_TOKEN_HMAC=true but VIDTUBE_TOKEN_HMAC_KEY is missing")
	}
	if err := token.ValidateHMACKey(sessCfg.RefreshHMACKey); err != nil {
		return errors.New("security policy: VIDTUBE_REQUIRE_TOKEN_HMAC=true but VIDTUBE_TOKEN_HMAC_KEY is too short (min 32 bytes)")
	}
	return nil
}
