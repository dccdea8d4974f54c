// middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID is the fiber.Locals key holding the session user id. It is
// "" for signed-out callers.
const LocalUserID = "user_id"

// SessionClaims is the part of a Supabase access token the service uses.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseSession validates an HS256 session token and returns its subject.
func ParseSession(tokenString string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// SessionMiddleware reads "Authorization: Bearer <jwt>". No header means a
// signed-out caller; a bad token is rejected with 401.
func SessionMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			c.Locals(LocalUserID, "")
			return c.Next()
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		return authenticate(c, token, key)
	}
}

// StreamSessionMiddleware reads the token from the "token" query parameter,
// since EventSource cannot set headers.
func StreamSessionMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
		}
		if token == "" {
			log.Printf("❌ [SESSION] Stream request without token: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}
		return authenticate(c, token, key)
	}
}

func authenticate(c *fiber.Ctx, token string, key []byte) error {
	claims, err := ParseSession(token, key)
	if err != nil {
		log.Printf("❌ [SESSION] Rejected token for %s: %v", c.Path(), err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid session",
			"cause": err.Error(),
		})
	}
	c.Locals(LocalUserID, claims.Subject)
	return c.Next()
}

// RequireSession answers 401 for signed-out callers.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":  "sign in required",
				"reason": "no_auth",
			})
		}
		return c.Next()
	}
}

// UserID returns the session user id, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
