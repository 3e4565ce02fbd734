package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"filevault/internal/auth"
)

// OwnerIDLocalKey is the key under which the authenticated owner id is stored in locals.
const OwnerIDLocalKey = "owner_id"

// Auth verifies the "Authorization: Bearer <jwt>" header and stores the owner id
// in locals. Requests without a valid token get 401 in the standard error envelope.
func Auth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return unauthorized(c)
		}

		owner, err := auth.OwnerFromToken(strings.TrimSpace(token), secret)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(OwnerIDLocalKey, owner)
		return c.Next()
	}
}

// OwnerID returns the authenticated owner id, or "" for anonymous requests.
func OwnerID(c *fiber.Ctx) string {
	if s, ok := c.Locals(OwnerIDLocalKey).(string); ok {
		return s
	}
	return ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": RequestIDFromCtx(c),
		"error": fiber.Map{
			"code":    "UNAUTHORIZED",
			"message": "authentication required",
		},
	})
}
