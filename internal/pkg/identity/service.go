// Package identity maps bearer tokens to caller identities. The platform's
// auth provider mints HMAC-signed tokens whose subject is the stable caller
// identity; the core only verifies and extracts it. Roles are resolved
// against the core's allow-lists, never from token contents.
package identity

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	Identity string `json:"identity"`

	jwtlib.RegisteredClaims
}

type Service interface {
	GenerateToken(identity string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (string, error)
}

type HMACService struct {
	secret []byte

	now func() time.Time
}

func NewHMACService(secret string) *HMACService {
	return &HMACService{secret: []byte(secret), now: time.Now}
}

// GenerateToken mints a token for an identity. Used by tests and by the
// worker bootstrap tooling; production tokens come from the auth provider
// sharing the same secret.
func (s *HMACService) GenerateToken(identity string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", ErrTokenInvalid
	}
	now := s.now().UTC()
	c := Claims{
		Identity: identity,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

// ValidateToken verifies the signature and expiry and returns the identity.
func (s *HMACService) ValidateToken(tokenString string) (string, error) {
	p := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	var c Claims
	token, err := p.ParseWithClaims(tokenString, &c, func(_ *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}
	identity := c.Identity
	if identity == "" {
		identity = c.Subject
	}
	if identity == "" {
		return "", ErrTokenInvalid
	}
	return identity, nil
}
