// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceRoleMiddleware guards admin routes with the Supabase service-role
// key, sent as "Authorization: Bearer <key>" or in the "apikey" header.
func ServiceRoleMiddleware(serviceRoleKey string) fiber.Handler {
	expected := []byte(serviceRoleKey)

	return func(c *fiber.Ctx) error {
		token := c.Get("apikey")
		if token == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if token == "" {
			log.Printf("🚫 [ADMIN_AUTH] Missing service key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin authentication token missing",
			})
		}

		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Printf("❌ [ADMIN_AUTH] Invalid service key for %s (got prefix: %.6s...)", c.Path(), token)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid admin authentication token",
			})
		}

		return c.Next()
	}
}
