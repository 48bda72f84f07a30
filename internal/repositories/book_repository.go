package repositories

import (
	"context"
	"errors"

	"bookshelf/internal/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("record not found")

// PriceFilter bounds a price-range query; nil means unbounded.
type PriceFilter struct {
	Min *float64
	Max *float64
}

// BookRepository defines the read side of the book catalog.
// Paginated methods return the page plus the total match count.
type BookRepository interface {
	List(ctx context.Context, offset, limit int) ([]models.Book, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	Search(ctx context.Context, query string, offset, limit int) ([]models.Book, int64, error)
	PriceRange(ctx context.Context, f PriceFilter, offset, limit int) ([]models.Book, int64, error)
	TopRated(ctx context.Context, threshold, limit int) ([]models.Book, error)
	Categories(ctx context.Context) ([]string, error)
	Overview(ctx context.Context) (models.StatsOverview, error)
	CategoryStats(ctx context.Context) ([]models.CategoryStats, error)
	// ListAll returns every book ordered by id.
	ListAll(ctx context.Context) ([]models.Book, error)
	// InTransaction runs fn against a writer bound to one transaction. The
	// transaction commits only when fn returns nil.
	InTransaction(ctx context.Context, fn func(w BookWriter) error) error
}

// BookWriter writes books inside a transaction.
type BookWriter interface {
	// Upsert inserts b, or replaces every column of the row with the same UPC.
	Upsert(b *models.Book) error
}
