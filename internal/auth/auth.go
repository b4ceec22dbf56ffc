// Package auth issues and verifies the guest identity tokens that tie a
// websocket connection to a stable player ID across reconnects.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the payload of a guest token: a player UUID (subject) plus the
// display name chosen at join time.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Service signs and parses tokens with a single HMAC secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// IssueToken mints a token for playerID. A zero playerID gets a fresh UUID,
// so the same call serves both first contact and re-issuance.
func (s *Service) IssueToken(playerID uuid.UUID, name string) (string, uuid.UUID, error) {
	if playerID == uuid.Nil {
		playerID = uuid.New()
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("auth: signing token: %w", err)
	}
	return tok, playerID, nil
}

// ParseToken verifies the signature and expiry and returns the embedded
// player identity.
func (s *Service) ParseToken(token string) (uuid.UUID, string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return id, claims.Name, nil
}
