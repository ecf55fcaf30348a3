package session

import "errors"

var (
	// ErrUnauthorized is the uniform failure for every authentication-stage
	// problem: bad credentials, bad/expired/forged tokens, stale refresh
	// tokens. Callers must not surface anything more specific to end users.
	ErrUnauthorized = errors.New("unauthorized")

	// Codec error kinds. They all surface externally as ErrUnauthorized but
	// stay distinguishable internally for branching and logging.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenWrongKind = errors.New("token kind mismatch")

	// ErrConfig is returned for invalid session configuration.
	ErrConfig = errors.New("invalid session config")
)
