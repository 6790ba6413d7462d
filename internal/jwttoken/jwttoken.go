// Package jwttoken issues and validates the signed admin session tokens.
package jwttoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "votedeck/pkg/domain"
	dErrors "votedeck/pkg/domain-errors"
)

// Claims is the token payload for an authenticated admin.
type Claims struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

type Option func(*Service)

func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func New(secret string, opts ...Option) (*Service, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	s := &Service{
		secret: []byte(secret),
		issuer: "votedeck",
		ttl:    8 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate signs a token for the admin, valid from now for the configured TTL.
func (s *Service) Generate(adminID id.AdminID, username, role string, now time.Time) (string, error) {
	claims := Claims{
		AdminID:  adminID.String(),
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   adminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *Service) Validate(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// TTL exposes the configured token lifetime for login responses.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
