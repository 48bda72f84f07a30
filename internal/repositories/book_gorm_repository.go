package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bookshelf/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are replaced wholesale when a row with the same UPC exists.
var upsertColumns = []string{
	"title", "category", "price", "price_excl_tax", "price_incl_tax", "rating",
	"availability", "description", "image_url", "book_url", "number_of_reviews",
	"product_type", "tax", "title_fold", "category_fold", "updated_at",
}

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{
		db: db,
	}
}

func (r *GORMBookRepository) books(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Book{})
}

// page counts the rows matched by q and loads one page of them in id order.
func page(q *gorm.DB, offset, limit int) ([]models.Book, int64, error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	books := make([]models.Book, 0, limit)
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// List retrieves one page of books ordered by id.
func (r *GORMBookRepository) List(ctx context.Context, offset, limit int) ([]models.Book, int64, error) {
	books, total, err := page(r.books(ctx), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}

// GetByID retrieves a single book by its ID.
func (r *GORMBookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("book with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get book by ID %d: %w", id, err)
	}
	return &book, nil
}

// Search matches query case-insensitively against title or category.
// LIKE wildcards in query are matched literally.
func (r *GORMBookRepository) Search(ctx context.Context, query string, offset, limit int) ([]models.Book, int64, error) {
	pattern := "%" + escapeLike(models.FoldCase(query)) + "%"
	q := r.books(ctx).Where(`title_fold LIKE ? ESCAPE '\' OR category_fold LIKE ? ESCAPE '\'`, pattern, pattern)
	books, total, err := page(q, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search books for %q: %w", query, err)
	}
	return books, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// PriceRange retrieves books whose price lies within the inclusive bounds.
func (r *GORMBookRepository) PriceRange(ctx context.Context, f PriceFilter, offset, limit int) ([]models.Book, int64, error) {
	q := r.books(ctx)
	if f.Min != nil {
		q = q.Where("price >= ?", *f.Min)
	}
	if f.Max != nil {
		q = q.Where("price <= ?", *f.Max)
	}
	books, total, err := page(q, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query price range: %w", err)
	}
	return books, total, nil
}

// TopRated retrieves at most limit books rated at least threshold,
// best rated first and ties broken by id.
func (r *GORMBookRepository) TopRated(ctx context.Context, threshold, limit int) ([]models.Book, error) {
	books := make([]models.Book, 0, limit)
	err := r.books(ctx).
		Where("rating >= ?", threshold).
		Order("rating DESC").Order("id ASC").
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top rated books: %w", err)
	}
	return books, nil
}

// Categories returns the distinct categories in alphabetical order.
func (r *GORMBookRepository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := r.books(ctx).Distinct("category").Order("category ASC").Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Overview aggregates the whole table. An empty table yields zeros.
func (r *GORMBookRepository) Overview(ctx context.Context) (models.StatsOverview, error) {
	out := models.StatsOverview{RatingDistribution: make(map[string]int64, 6)}
	for i := 0; i <= 5; i++ {
		out.RatingDistribution[strconv.Itoa(i)] = 0
	}

	var totals struct {
		Total        int64
		AveragePrice float64
	}
	if err := r.books(ctx).Select("COUNT(*) AS total, COALESCE(AVG(price), 0) AS average_price").Scan(&totals).Error; err != nil {
		return out, fmt.Errorf("failed to aggregate books: %w", err)
	}
	out.TotalBooks = totals.Total
	out.AveragePrice = totals.AveragePrice

	var buckets []struct {
		Rating int
		Count  int64
	}
	if err := r.books(ctx).Select("rating, COUNT(*) AS count").Group("rating").Scan(&buckets).Error; err != nil {
		return out, fmt.Errorf("failed to build rating distribution: %w", err)
	}
	for _, b := range buckets {
		if b.Rating >= 0 && b.Rating <= 5 {
			out.RatingDistribution[strconv.Itoa(b.Rating)] = b.Count
		}
	}
	return out, nil
}

// CategoryStats aggregates each category, ordered by category name.
func (r *GORMBookRepository) CategoryStats(ctx context.Context) ([]models.CategoryStats, error) {
	stats := []models.CategoryStats{}
	err := r.books(ctx).
		Select("category, COUNT(*) AS book_count, AVG(price) AS average_price, AVG(rating) AS average_rating").
		Group("category").
		Order("category ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	return stats, nil
}

// ListAll retrieves every book ordered by id.
func (r *GORMBookRepository) ListAll(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to get all books: %w", err)
	}
	return books, nil
}

// InTransaction runs fn inside one database transaction.
func (r *GORMBookRepository) InTransaction(ctx context.Context, fn func(w BookWriter) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBookWriter{tx: tx})
	})
}

type gormBookWriter struct {
	tx *gorm.DB
}

func (w *gormBookWriter) Upsert(b *models.Book) error {
	err := w.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "upc"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(b).Error
	if err != nil {
		return fmt.Errorf("failed to upsert book %s: %w", b.UPC, err)
	}
	return nil
}
