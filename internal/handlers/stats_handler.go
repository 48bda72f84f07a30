package handlers

import (
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatsHandler serves the memoized aggregate reads.
type StatsHandler struct {
	bookService *services.BookService
	log         logrus.FieldLogger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(bookService *services.BookService, log logrus.FieldLogger) *StatsHandler {
	return &StatsHandler{bookService: bookService, log: log}
}

// RegisterRoutes registers the category and stats routes.
func (h *StatsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/categories", h.Categories)
	router.Get("/stats/overview", h.Overview)
	router.Get("/stats/categories", h.CategoryStats)
}

// Categories handles GET /categories.
func (h *StatsHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.bookService.Categories(c.UserContext())
	if err != nil {
		return serviceError(c, h.log, err)
	}
	if cats == nil {
		cats = []string{}
	}
	return c.JSON(fiber.Map{"categories": cats, "count": len(cats)})
}

// Overview handles GET /stats/overview.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	ov, err := h.bookService.Overview(c.UserContext())
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(ov)
}

// CategoryStats handles GET /stats/categories.
func (h *StatsHandler) CategoryStats(c *fiber.Ctx) error {
	stats, err := h.bookService.CategoryStats(c.UserContext())
	if err != nil {
		return serviceError(c, h.log, err)
	}
	if stats == nil {
		return c.JSON([]struct{}{})
	}
	return c.JSON(stats)
}
