package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// UnknownCategory is stored when a book's category cannot be determined.
const UnknownCategory = "unknown"

// Book is one catalog item as scraped, stored and served.
// UPC is the natural key used for upserts; ID only gives a stable ordering.
type Book struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"type:varchar(512);not null"`
	Category        string    `json:"category" gorm:"type:varchar(100);not null;index"`
	Price           float64   `json:"price" gorm:"not null;default:0;index"`
	PriceExclTax    float64   `json:"price_excl_tax" gorm:"not null;default:0"`
	PriceInclTax    float64   `json:"price_incl_tax" gorm:"not null;default:0"`
	Rating          int       `json:"rating" gorm:"not null;default:0;index"`
	UPC             string    `json:"upc" gorm:"column:upc;type:varchar(64);uniqueIndex;not null"`
	Availability    int       `json:"availability" gorm:"not null;default:0"`
	Description     string    `json:"description" gorm:"type:text"`
	ImageURL        string    `json:"image_url" gorm:"type:varchar(1024)"`
	BookURL         string    `json:"book_url" gorm:"type:varchar(1024)"`
	NumberOfReviews int       `json:"number_of_reviews" gorm:"not null;default:0"`
	ProductType     string    `json:"product_type" gorm:"type:varchar(100)"`
	Tax             float64   `json:"tax" gorm:"not null;default:0"`
	TitleFold       string    `json:"-" gorm:"type:varchar(512);not null;default:''"`
	CategoryFold    string    `json:"-" gorm:"type:varchar(100);not null;default:''"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FoldCase is the case folding applied to stored search columns and to
// search queries. It is done here rather than with SQL LOWER(), which
// sqlite applies to ASCII letters only.
func FoldCase(s string) string {
	return strings.ToLower(s)
}

// Fold fills the search columns from Title and Category.
func (b *Book) Fold() {
	b.TitleFold = FoldCase(b.Title)
	b.CategoryFold = FoldCase(b.Category)
}

// BeforeCreate keeps the search columns in step with every insert and upsert.
func (b *Book) BeforeCreate(*gorm.DB) error {
	b.Fold()
	return nil
}

// BookSummary is the reduced shape used by list endpoints.
type BookSummary struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	Rating       int     `json:"rating"`
	UPC          string  `json:"upc"`
	Availability int     `json:"availability"`
}

// Summary returns the list representation of b.
func (b Book) Summary() BookSummary {
	return BookSummary{
		ID:           b.ID,
		Title:        b.Title,
		Category:     b.Category,
		Price:        b.Price,
		Rating:       b.Rating,
		UPC:          b.UPC,
		Availability: b.Availability,
	}
}
