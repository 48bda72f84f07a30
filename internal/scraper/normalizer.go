package scraper

import (
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/textnum"
)

// RawBook is what the extractor pulls off a listing page and the matching
// detail page, before any type coercion.
type RawBook struct {
	Title            string
	BookURL          string
	ImageURL         string
	ListingPrice     string
	RatingClass      string // full class attribute, e.g. "star-rating Three"
	AvailabilityText string
	Description      string
	Breadcrumb       []string
	Info             map[string]string // product information table, header -> cell
}

// ratingWords maps the star-rating class word to a rating.
var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// infoFields maps product information table headers onto the book.
// A header that is absent or unparseable leaves the zero value in place.
var infoFields = []struct {
	header string
	apply  func(b *models.Book, v string)
}{
	{"UPC", func(b *models.Book, v string) { b.UPC = strings.TrimSpace(v) }},
	{"Product Type", func(b *models.Book, v string) { b.ProductType = strings.TrimSpace(v) }},
	{"Price (excl. tax)", func(b *models.Book, v string) { b.PriceExclTax = parsePrice(v) }},
	{"Price (incl. tax)", func(b *models.Book, v string) { b.PriceInclTax = parsePrice(v) }},
	{"Tax", func(b *models.Book, v string) { b.Tax = parsePrice(v) }},
	{"Availability", func(b *models.Book, v string) { b.Availability = parseAvailability(v) }},
	{"Number of reviews", func(b *models.Book, v string) { b.NumberOfReviews = parseCount(v) }},
}

// Normalize turns a raw descriptor into a typed book. It never fails:
// every missing or malformed field degrades to 0, "" or "unknown".
func Normalize(raw RawBook) models.Book {
	b := models.Book{
		Title:       strings.TrimSpace(raw.Title),
		BookURL:     strings.TrimSpace(raw.BookURL),
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		Description: strings.TrimSpace(raw.Description),
		Price:       parsePrice(raw.ListingPrice),
		Rating:      parseRating(raw.RatingClass),
		Category:    categoryFromBreadcrumb(raw.Breadcrumb),
	}

	for _, f := range infoFields {
		if v, ok := raw.Info[f.header]; ok {
			f.apply(&b, v)
		}
	}

	// The listing price is the tax-inclusive price when the listing lacks it.
	if b.Price == 0 && b.PriceInclTax > 0 {
		b.Price = b.PriceInclTax
	}
	if b.Availability == 0 && raw.AvailabilityText != "" {
		b.Availability = parseAvailability(raw.AvailabilityText)
	}
	return b
}

// parsePrice keeps digits and the decimal point, so "£51.77" gives 51.77.
func parsePrice(s string) float64 {
	v, err := textnum.Price(s)
	if err != nil {
		return 0
	}
	return v
}

func parseRating(class string) int {
	for _, word := range strings.Fields(class) {
		if r, ok := ratingWords[word]; ok {
			return clamp(r, 0, 5)
		}
	}
	return 0
}

// parseAvailability extracts N from "In stock (N available)".
func parseAvailability(s string) int {
	n, err := textnum.Availability(s)
	if err != nil {
		return 0
	}
	return n
}

func parseCount(s string) int {
	n, err := textnum.Count(s)
	if err != nil {
		return 0
	}
	return n
}

// categoryFromBreadcrumb takes the segment before the book title:
// Home > Books > Poetry > A Light in the Attic gives "Poetry".
func categoryFromBreadcrumb(crumbs []string) string {
	if len(crumbs) < 2 {
		return models.UnknownCategory
	}
	c := strings.TrimSpace(crumbs[len(crumbs)-2])
	if c == "" {
		return models.UnknownCategory
	}
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
