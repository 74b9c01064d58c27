package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"appcore/pkg/errors"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Claims are the session-token claims carried by the bearer token the
// session core hands to the HTTP client.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 session tokens. The session core
// treats the token as opaque; only the HTTP surface inspects it.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a token manager. A zero ttl falls back to
// DefaultTokenTTL.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue mints a signed session token for the given user id.
func (m *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.NewInvalidInputError("user id is required", nil)
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.NewEncodingError("failed to sign session token", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid or expired session token")
	}
	if claims.UserID == "" {
		return nil, errors.NewUnauthorizedError("session token missing user id")
	}
	return claims, nil
}
