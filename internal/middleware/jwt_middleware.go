package middleware

import (
	"strings"

	"bookshelf/internal/apierror"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

// AuthRequired is a Fiber middleware that admits requests carrying a valid
// access token as "Authorization: Bearer <token>".
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return apierror.Respond(c, fiber.StatusUnauthorized, apierror.Unauthorized,
				"Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(tokenString, services.TokenTypeAccess)
		if err != nil {
			return apierror.Respond(c, fiber.StatusUnauthorized, apierror.Unauthorized, "Invalid or expired token")
		}

		c.Locals(LocalUserID, claims["user_id"])
		c.Locals(LocalUsername, claims["username"])
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
