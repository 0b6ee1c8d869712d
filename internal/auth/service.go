// Package auth exchanges the configured admin key for short-lived API tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// ErrDisabled is returned when no admin key is configured.
var ErrDisabled = errors.New("token issuing disabled: no admin key configured")

// ErrInvalidKey is returned when the presented admin key does not match.
var ErrInvalidKey = errors.New("invalid admin key")

// Service issues HMAC-signed JWTs for destructive API operations.
type Service struct {
	adminKey  string
	jwtSecret string
}

// NewService creates a new auth Service.
func NewService(adminKey, jwtSecret string) *Service {
	return &Service{adminKey: adminKey, jwtSecret: jwtSecret}
}

// IssueToken validates the admin key and returns a signed token.
func (s *Service) IssueToken(adminKey string) (string, error) {
	if s.adminKey == "" {
		return "", ErrDisabled
	}
	if subtle.ConstantTimeCompare([]byte(adminKey), []byte(s.adminKey)) != 1 {
		return "", ErrInvalidKey
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
