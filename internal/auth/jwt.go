// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrEmptyToken   = errors.New("empty token")
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims binds an access token to one identity and one session.
type AccessClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject claim.
func (c *AccessClaims) IdentityID() string {
	return c.Subject
}

// TokenManager signs and parses HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager requires the secret key to be passed in.
func NewTokenManager(secretKey []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secretKey, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// TTL is the access token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate mints a signed access token. Every token carries a fresh jti so two
// tokens minted in the same second never compare equal.
func (m *TokenManager) Generate(identityID, sessionID string) (string, error) {
	if identityID == "" || sessionID == "" {
		return "", errors.New("identity ID and session ID are required")
	}

	now := m.now()
	claims := AccessClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tokenString, nil
}

// Validate checks signature and expiry.
func (m *TokenManager) Validate(tokenString string) (*AccessClaims, error) {
	return m.parse(tokenString, jwt.WithTimeFunc(m.now))
}

// ParseIgnoringExpiry checks the signature only. Refresh uses it because the
// presented access token has normally lapsed already.
func (m *TokenManager) ParseIgnoringExpiry(tokenString string) (*AccessClaims, error) {
	return m.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (m *TokenManager) parse(tokenString string, opts ...jwt.ParserOption) (*AccessClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
