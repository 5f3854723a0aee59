package middleware

import (
	"errors"
	"strings"

	"skillscope/internal/pkg/identity"

	"github.com/gofiber/fiber/v3"
)

const CtxIdentityKey = "identity"

type IdentityMiddleware struct {
	svc identity.Service
}

func NewIdentityMiddleware(svc identity.Service) *IdentityMiddleware {
	return &IdentityMiddleware{svc: svc}
}

// Middleware resolves the caller identity from the Authorization header when
// present. Requests without a token proceed as anonymous; read-only routes
// accept that, mutating ones fail their role check in the core. An invalid
// or expired token is always rejected.
func (m *IdentityMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok {
			return c.Next()
		}

		id, err := m.svc.ValidateToken(token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}

		c.Locals(CtxIdentityKey, id)
		return c.Next()
	}
}

// Identity returns the authenticated caller identity, or "" for anonymous.
func Identity(c fiber.Ctx) string {
	if v, ok := c.Locals(CtxIdentityKey).(string); ok {
		return v
	}
	return ""
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
