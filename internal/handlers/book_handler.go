package handlers

import (
	"strconv"

	"bookshelf/internal/apierror"
	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// BookHandler serves catalog reads.
type BookHandler struct {
	bookService *services.BookService
	log         logrus.FieldLogger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(bookService *services.BookService, log logrus.FieldLogger) *BookHandler {
	return &BookHandler{bookService: bookService, log: log}
}

// RegisterRoutes registers the book routes. The fixed paths come before /:id.
func (h *BookHandler) RegisterRoutes(router fiber.Router) {
	bookRoutes := router.Group("/books")
	bookRoutes.Get("/", h.ListBooks)
	bookRoutes.Get("/search", h.SearchBooks)
	bookRoutes.Get("/price-range", h.PriceRange)
	bookRoutes.Get("/top-rated", h.TopRated)
	bookRoutes.Get("/:id", h.GetBook)
}

// ListBooks handles GET /books.
func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	p, err := pagination(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := h.bookService.ListBooks(c.UserContext(), p)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(page)
}

// GetBook handles GET /books/:id.
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "book id must be a positive integer")
	}
	book, err := h.bookService.GetBook(c.UserContext(), uint(id))
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(book)
}

// SearchBooks handles GET /books/search?q=.
func (h *BookHandler) SearchBooks(c *fiber.Ctx) error {
	p, err := pagination(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := h.bookService.SearchBooks(c.UserContext(), c.Query("q"), p)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(page)
}

// PriceRange handles GET /books/price-range?min_price=&max_price=.
func (h *BookHandler) PriceRange(c *fiber.Ctx) error {
	p, err := pagination(c)
	if err != nil {
		return badRequest(c, err)
	}
	minPrice, err := queryFloat(c, "min_price")
	if err != nil {
		return badRequest(c, err)
	}
	maxPrice, err := queryFloat(c, "max_price")
	if err != nil {
		return badRequest(c, err)
	}
	page, err := h.bookService.BooksInPriceRange(c.UserContext(), minPrice, maxPrice, p)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(page)
}

// TopRated handles GET /books/top-rated?threshold=.
func (h *BookHandler) TopRated(c *fiber.Ctx) error {
	threshold, err := queryInt(c, "threshold", services.DefaultTopRatedThreshold)
	if err != nil {
		return badRequest(c, err)
	}
	books, err := h.bookService.TopRated(c.UserContext(), threshold)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"threshold": threshold,
		"count":     len(books),
		"data":      books,
	})
}
