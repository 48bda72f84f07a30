package catalogfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookshelf/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) []Row {
	t.Helper()
	var rows []Row
	require.NoError(t, Read(path, func(r Row) error {
		rows = append(rows, r)
		return nil
	}))
	return rows
}

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWrite_HeaderAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "books.csv")
	books := []models.Book{
		{
			Title: "A Light in the Attic", Category: "Poetry", Price: 51.77, PriceExclTax: 51.77, PriceInclTax: 51.77,
			Rating: 3, UPC: "a897fe39b1053632", Availability: 22,
			Description: "Quotes \"inside\", commas, and\na newline", ProductType: "Books",
		},
		{Title: "Soumission", Category: "Fiction", Price: 50.1, Rating: 5, UPC: "6957f44c3847a760", NumberOfReviews: 3},
	}
	require.NoError(t, Write(path, books))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	firstLine := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Equal(t, strings.Join(Header, ","), firstLine)

	rows := readAll(t, path)
	require.Len(t, rows, 2)

	got, err := ParseRow(rows[0])
	require.NoError(t, err)
	assert.Equal(t, books[0].Description, got.Description)
	assert.Equal(t, 51.77, got.Price)
	assert.Equal(t, 22, got.Availability)

	got, err = ParseRow(rows[1])
	require.NoError(t, err)
	assert.Equal(t, 50.10, got.Price)
	assert.Equal(t, 3, got.NumberOfReviews)
}

func TestWrite_ReplacesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, Write(path, []models.Book{{Title: "Old", UPC: "old"}, {Title: "Older", UPC: "older"}}))
	require.NoError(t, Write(path, []models.Book{{Title: "New", UPC: "new"}}))

	rows := readAll(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].Get("upc"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestRead_MissingFile(t *testing.T) {
	err := Read(filepath.Join(t.TempDir(), "nope.csv"), func(Row) error { return nil })
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRead_MissingRequiredColumn(t *testing.T) {
	path := writeRaw(t, "title,category\nA,B\n")
	err := Read(path, func(Row) error { return nil })
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestRead_StripsByteOrderMark(t *testing.T) {
	path := writeRaw(t, "\ufefftitle,upc\nDune,u1\n")
	rows := readAll(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dune", rows[0].Get("title"))
}

func TestRead_ShortAndBrokenLines(t *testing.T) {
	path := writeRaw(t, "title,upc,price\nDune,u1\nbro\"ken,u2,1\nEmma,u3,4.5\n")
	rows := readAll(t, path)
	require.Len(t, rows, 3)

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, "", rows[0].Get("price"))

	assert.Error(t, rows[1].Err)
	_, err := ParseRow(rows[1])
	assert.ErrorIs(t, err, ErrMalformedRow)

	assert.Equal(t, 4, rows[2].Line)
	b, err := ParseRow(rows[2])
	require.NoError(t, err)
	assert.Equal(t, 4.5, b.Price)
}

func TestRead_CallbackErrorStops(t *testing.T) {
	path := writeRaw(t, "title,upc\nA,1\nB,2\n")
	stop := errors.New("stop")
	calls := 0
	err := Read(path, func(Row) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestParseRow(t *testing.T) {
	row := func(fields map[string]string) Row { return Row{Line: 2, Fields: fields} }

	tests := []struct {
		name    string
		fields  map[string]string
		wantErr string
		check   func(t *testing.T, b models.Book)
	}{
		{
			name:    "missing title and upc",
			fields:  map[string]string{"category": "Poetry"},
			wantErr: "missing title, upc",
		},
		{
			name:   "empty category becomes unknown",
			fields: map[string]string{"title": "Dune", "upc": "u1"},
			check: func(t *testing.T, b models.Book) {
				assert.Equal(t, models.UnknownCategory, b.Category)
				assert.Equal(t, 0.0, b.Price)
				assert.Equal(t, 0, b.Rating)
			},
		},
		{
			name:   "pound prefix is accepted",
			fields: map[string]string{"title": "Dune", "upc": "u1", "price": "£12.50"},
			check: func(t *testing.T, b models.Book) {
				assert.Equal(t, 12.5, b.Price)
			},
		},
		{
			name: "cells as the site displays them",
			fields: map[string]string{
				"title": "A Light in the Attic", "category": "Poetry", "upc": "a897fe39b1053632",
				"price": "£51.77", "price_excl_tax": "Â£51.77", "price_incl_tax": "51.77", "tax": "£0.00",
				"rating": "3", "availability": "In stock (22 available)", "number_of_reviews": "0",
			},
			check: func(t *testing.T, b models.Book) {
				assert.Equal(t, 51.77, b.Price)
				assert.Equal(t, 51.77, b.PriceExclTax)
				assert.Equal(t, 51.77, b.PriceInclTax)
				assert.Equal(t, 0.0, b.Tax)
				assert.Equal(t, 3, b.Rating)
				assert.Equal(t, 22, b.Availability)
			},
		},
		{
			name:   "out of stock text reads as zero",
			fields: map[string]string{"title": "Dune", "upc": "u1", "availability": "Out of stock"},
			check: func(t *testing.T, b models.Book) {
				assert.Equal(t, 0, b.Availability)
			},
		},
		{
			name:    "negative price",
			fields:  map[string]string{"title": "Dune", "upc": "u1", "price": "-4.00"},
			wantErr: "price",
		},
		{
			name:   "rating is clamped",
			fields: map[string]string{"title": "Dune", "upc": "u1", "rating": "9"},
			check: func(t *testing.T, b models.Book) {
				assert.Equal(t, 5, b.Rating)
			},
		},
		{
			name:    "unparseable price",
			fields:  map[string]string{"title": "Dune", "upc": "u1", "price": "cheap"},
			wantErr: "price",
		},
		{
			name:    "negative availability",
			fields:  map[string]string{"title": "Dune", "upc": "u1", "availability": "-2"},
			wantErr: "availability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseRow(row(tt.fields))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedRow)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}
