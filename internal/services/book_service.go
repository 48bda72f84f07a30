package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"bookshelf/internal/cache"
	"bookshelf/internal/features"
	"bookshelf/internal/models"
	"bookshelf/internal/repositories"
)

// Paging and result limits.
const (
	DefaultPage              = 1
	DefaultPageSize          = 50
	MaxPageSize              = 100
	TopRatedLimit            = 20
	DefaultTopRatedThreshold = 5

	// MaxPage keeps (page-1)*MaxPageSize within an int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Cache keys of the memoized reads.
const (
	cacheKeyCategories    = "categories"
	cacheKeyOverview      = "stats:overview"
	cacheKeyCategoryStats = "stats:categories"
)

var (
	// ErrInvalidArgument marks a request the caller has to fix.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = repositories.ErrNotFound
)

// Pagination is a normalized page request.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination applies defaults: page < 1 becomes 1, size < 1 becomes
// DefaultPageSize, pages above MaxPage and sizes above MaxPageSize are clamped.
func NewPagination(page, pageSize int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Offset is the number of rows before the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is the paginated response envelope.
type Page[T any] struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	Data       []T   `json:"data"`
}

// NewPage wraps data with its paging metadata.
func NewPage[T any](p Pagination, total int64, data []T) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: int((total + int64(p.PageSize) - 1) / int64(p.PageSize)),
		Data:       data,
	}
}

func summaries(books []models.Book) []models.BookSummary {
	out := make([]models.BookSummary, len(books))
	for i, b := range books {
		out[i] = b.Summary()
	}
	return out
}

// BookService answers catalog reads.
type BookService struct {
	repo  repositories.BookRepository
	cache cache.Cache
}

// NewBookService creates a new BookService. c may be nil to disable memoization.
func NewBookService(repo repositories.BookRepository, c cache.Cache) *BookService {
	return &BookService{
		repo:  repo,
		cache: c,
	}
}

// ListBooks returns one page of books in id order.
func (s *BookService) ListBooks(ctx context.Context, p Pagination) (Page[models.BookSummary], error) {
	books, total, err := s.repo.List(ctx, p.Offset(), p.PageSize)
	if err != nil {
		return Page[models.BookSummary]{}, err
	}
	return NewPage(p, total, summaries(books)), nil
}

// GetBook returns the full record of one book.
func (s *BookService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	return s.repo.GetByID(ctx, id)
}

// SearchBooks matches q against title and category, ignoring case.
func (s *BookService) SearchBooks(ctx context.Context, q string, p Pagination) (Page[models.BookSummary], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Page[models.BookSummary]{}, fmt.Errorf("%w: query parameter 'q' is required", ErrInvalidArgument)
	}
	books, total, err := s.repo.Search(ctx, q, p.Offset(), p.PageSize)
	if err != nil {
		return Page[models.BookSummary]{}, err
	}
	return NewPage(p, total, summaries(books)), nil
}

// BooksInPriceRange returns books priced within [minPrice, maxPrice]; nil bounds are open.
func (s *BookService) BooksInPriceRange(ctx context.Context, minPrice, maxPrice *float64, p Pagination) (Page[models.BookSummary], error) {
	if (minPrice != nil && *minPrice < 0) || (maxPrice != nil && *maxPrice < 0) {
		return Page[models.BookSummary]{}, fmt.Errorf("%w: prices must not be negative", ErrInvalidArgument)
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return Page[models.BookSummary]{}, fmt.Errorf("%w: min_price %.2f is greater than max_price %.2f", ErrInvalidArgument, *minPrice, *maxPrice)
	}
	books, total, err := s.repo.PriceRange(ctx, repositories.PriceFilter{Min: minPrice, Max: maxPrice}, p.Offset(), p.PageSize)
	if err != nil {
		return Page[models.BookSummary]{}, err
	}
	return NewPage(p, total, summaries(books)), nil
}

// TopRated returns up to TopRatedLimit books rated at least threshold.
func (s *BookService) TopRated(ctx context.Context, threshold int) ([]models.BookSummary, error) {
	if threshold < 0 || threshold > 5 {
		return nil, fmt.Errorf("%w: threshold must be between 0 and 5", ErrInvalidArgument)
	}
	books, err := s.repo.TopRated(ctx, threshold, TopRatedLimit)
	if err != nil {
		return nil, err
	}
	return summaries(books), nil
}

// Categories returns the distinct categories, memoized.
func (s *BookService) Categories(ctx context.Context) ([]string, error) {
	return cache.Fetch(ctx, s.cache, cacheKeyCategories, func() ([]string, error) {
		return s.repo.Categories(ctx)
	})
}

// Overview returns catalog-wide statistics, memoized.
func (s *BookService) Overview(ctx context.Context) (models.StatsOverview, error) {
	return cache.Fetch(ctx, s.cache, cacheKeyOverview, func() (models.StatsOverview, error) {
		ov, err := s.repo.Overview(ctx)
		if err != nil {
			return ov, err
		}
		ov.AveragePrice = features.Round2(ov.AveragePrice)
		return ov, nil
	})
}

// CategoryStats returns per-category statistics, memoized.
func (s *BookService) CategoryStats(ctx context.Context) ([]models.CategoryStats, error) {
	return cache.Fetch(ctx, s.cache, cacheKeyCategoryStats, func() ([]models.CategoryStats, error) {
		stats, err := s.repo.CategoryStats(ctx)
		if err != nil {
			return nil, err
		}
		for i := range stats {
			stats[i].AveragePrice = features.Round2(stats[i].AveragePrice)
			stats[i].AverageRating = features.Round2(stats[i].AverageRating)
		}
		return stats, nil
	})
}

// ClearCache drops every memoized read.
func (s *BookService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
