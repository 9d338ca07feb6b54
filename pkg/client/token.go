package client

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/getmockd/soapkit/pkg/config"
)

// DefaultTokenTTL is the lifetime of minted tokens when none is configured.
const DefaultTokenTTL = 5 * time.Minute

// TokenSource supplies bearer tokens for outgoing calls.
type TokenSource interface {
	Token() (string, error)
}

// JWTSource mints a fresh HS256 token for every call.
type JWTSource struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewJWTSource creates a token source from the JWT settings.
func NewJWTSource(cfg config.JWTConfig) *JWTSource {
	return &JWTSource{cfg: cfg, now: time.Now}
}

// Token implements TokenSource.
func (s *JWTSource) Token() (string, error) {
	if s.cfg.Secret == "" {
		return "", errors.New("jwt: empty secret")
	}
	ttl := s.cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   s.cfg.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}
