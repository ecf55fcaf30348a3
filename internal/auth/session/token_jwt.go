package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates the two token kinds the codec can mint.
type TokenKind string

const (
	// KindAccess is the short-lived, self-verifying request credential.
	KindAccess TokenKind = "access"
	// KindRefresh is the long-lived rotation credential.
	KindRefresh TokenKind = "refresh"
)

// Claims is the verified content of a token.
// Username and Email are only present on access tokens.
type Claims struct {
	AccountID string
	Username  string
	Email     string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec mints and verifies the two token kinds.
type Codec interface {
	IssueAccess(accountID, username, email string, now time.Time) (token string, exp time.Time, err error)
	IssueRefresh(accountID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, kind TokenKind) (Claims, error)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Kind     string `json:"kind"`
}

// JWTCodec signs HS256 JWTs with a distinct secret per kind.
type JWTCodec struct {
	issuer     string
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	skew       time.Duration
}

// NewJWTCodec builds a Codec from validated configuration.
func NewJWTCodec(cfg Config) (*JWTCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &JWTCodec{
		issuer:     cfg.Issuer,
		accessKey:  cfg.AccessSecret,
		refreshKey: cfg.RefreshSecret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		skew:       cfg.ClockSkew,
	}, nil
}

// IssueAccess mints a short-lived access token carrying the public identity
// claims needed by the request gate.
func (c *JWTCodec) IssueAccess(accountID, username, email string, now time.Time) (string, time.Time, error) {
	exp := now.Add(c.accessTTL)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
		Email:    email,
		Kind:     string(KindAccess),
	})

	signed, err := tok.SignedString(c.accessKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh mints a long-lived refresh token carrying only the account id.
func (c *JWTCodec) IssueRefresh(accountID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(c.refreshTTL)

	// The jti makes every refresh token unique even within the same second,
	// so rotation always produces a token distinct from the one it replaces.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind: string(KindRefresh),
	})

	signed, err := tok.SignedString(c.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and kind against the expected token kind.
// A token signed with the other kind's secret fails signature verification
// before the kind claim is ever consulted.
func (c *JWTCodec) Verify(tokenStr string, kind TokenKind) (Claims, error) {
	key := c.accessKey
	if kind == KindRefresh {
		key = c.refreshKey
	}

	var claims jwtClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.skew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		default:
			return Claims{}, ErrTokenMalformed
		}
	}

	if claims.Kind != string(kind) || claims.Subject == "" {
		return Claims{}, ErrTokenWrongKind
	}

	out := Claims{
		AccountID: claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		Kind:      kind,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
