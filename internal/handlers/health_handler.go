package handlers

import (
	"context"
	"time"

	"bookshelf/internal/apierror"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the store is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler reports service and store health.
type HealthHandler struct {
	ping Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(ping Pinger) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		return apierror.Respond(c, fiber.StatusServiceUnavailable, apierror.StoreUnavailable, "database unreachable")
	}
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"database": "connected",
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
