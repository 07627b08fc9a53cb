package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Identity is the caller behind a verified bearer token.
type Identity struct {
	UserID   string
	Username string
}

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (*Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The second space-separated field is taken as the token.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthRequired rejects requests without a valid bearer token and stores the
// caller's identity in the request locals.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		identity, err := verifier.VerifyToken(BearerToken(authHeader))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		setIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth records the caller's identity when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := BearerToken(c.Get(fiber.HeaderAuthorization)); token != "" {
			if identity, err := verifier.VerifyToken(token); err == nil {
				setIdentity(c, identity)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// Username returns the authenticated username, or "".
func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalUsername).(string)
	return name
}

func setIdentity(c *fiber.Ctx, identity *Identity) {
	c.Locals(LocalUserID, identity.UserID)
	c.Locals(LocalUsername, identity.Username)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, identity.UserID))
}
