package scraper

import (
	"testing"

	"bookshelf/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"£51.77", 51.77},
		{"Â£13.99", 13.99},
		{"£1,234.50", 1234.50},
		{"  20 ", 20},
		{"", 0},
		{"free", 0},
		{"1.2.3", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePrice(tt.in), "input %q", tt.in)
	}
}

func TestParseRating(t *testing.T) {
	assert.Equal(t, 3, parseRating("star-rating Three"))
	assert.Equal(t, 5, parseRating("star-rating Five"))
	assert.Equal(t, 1, parseRating("One"))
	assert.Equal(t, 0, parseRating("star-rating Zero"))
	assert.Equal(t, 0, parseRating(""))
}

func TestParseAvailability(t *testing.T) {
	assert.Equal(t, 22, parseAvailability("In stock (22 available)"))
	assert.Equal(t, 1, parseAvailability("In stock (1 available)"))
	assert.Equal(t, 0, parseAvailability("In stock"))
	assert.Equal(t, 0, parseAvailability("Out of stock"))
}

func TestCategoryFromBreadcrumb(t *testing.T) {
	assert.Equal(t, "Poetry", categoryFromBreadcrumb([]string{"Home", "Books", " Poetry ", "A Light in the Attic"}))
	assert.Equal(t, models.UnknownCategory, categoryFromBreadcrumb([]string{"Home"}))
	assert.Equal(t, models.UnknownCategory, categoryFromBreadcrumb(nil))
	assert.Equal(t, models.UnknownCategory, categoryFromBreadcrumb([]string{"Home", "", "Title"}))
}

func TestNormalize_FullDescriptor(t *testing.T) {
	raw := RawBook{
		Title:            " A Light in the Attic ",
		BookURL:          "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
		ImageURL:         "https://books.toscrape.com/media/cache/fe/72/fe72.jpg",
		ListingPrice:     "£51.77",
		RatingClass:      "star-rating Three",
		AvailabilityText: "In stock (22 available)",
		Description:      "It's hard to imagine a world without A Light in the Attic.",
		Breadcrumb:       []string{"Home", "Books", "Poetry", "A Light in the Attic"},
		Info: map[string]string{
			"UPC":               "a897fe39b1053632",
			"Product Type":      "Books",
			"Price (excl. tax)": "£51.77",
			"Price (incl. tax)": "£51.77",
			"Tax":               "£0.00",
			"Availability":      "In stock (22 available)",
			"Number of reviews": "0",
		},
	}

	b := Normalize(raw)

	assert.Equal(t, "A Light in the Attic", b.Title)
	assert.Equal(t, "Poetry", b.Category)
	assert.Equal(t, 51.77, b.Price)
	assert.Equal(t, 51.77, b.PriceExclTax)
	assert.Equal(t, 51.77, b.PriceInclTax)
	assert.Equal(t, 0.0, b.Tax)
	assert.Equal(t, 3, b.Rating)
	assert.Equal(t, "a897fe39b1053632", b.UPC)
	assert.Equal(t, 22, b.Availability)
	assert.Equal(t, 0, b.NumberOfReviews)
	assert.Equal(t, "Books", b.ProductType)
	assert.Equal(t, raw.BookURL, b.BookURL)
	assert.Equal(t, raw.ImageURL, b.ImageURL)
}

func TestNormalize_DegradesToDefaults(t *testing.T) {
	b := Normalize(RawBook{
		Title:       "Untitled",
		RatingClass: "star-rating Eleven",
		Info: map[string]string{
			"Number of reviews": "many",
			"Price (incl. tax)": "£10.00",
			"Availability":      "Out of stock",
		},
	})

	assert.Equal(t, "Untitled", b.Title)
	assert.Equal(t, models.UnknownCategory, b.Category)
	assert.Equal(t, 0, b.Rating)
	assert.Equal(t, 0, b.NumberOfReviews)
	assert.Equal(t, 0, b.Availability)
	assert.Equal(t, 10.0, b.Price, "falls back to the tax-inclusive price")
	assert.Empty(t, b.UPC)
	assert.Empty(t, b.Description)
}
