package middleware

import (
	"fmt"
	"time"

	"bookshelf/internal/apierror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit allows maxRequests requests per client IP within each window.
func RateLimit(maxRequests int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apierror.Respond(c, fiber.StatusTooManyRequests, apierror.RateLimited,
				fmt.Sprintf("rate limit of %d requests per %s exceeded", maxRequests, window))
		},
	})
}
