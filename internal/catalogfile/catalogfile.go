// Package catalogfile reads and writes the delimited file that hands scraped
// books from the scraper to the ingestion loader.
package catalogfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/textnum"
)

// Header is the fixed column layout of the catalog file.
var Header = []string{
	"title",
	"category",
	"price",
	"price_excl_tax",
	"price_incl_tax",
	"rating",
	"upc",
	"availability",
	"description",
	"image_url",
	"book_url",
	"number_of_reviews",
	"product_type",
	"tax",
}

var (
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("catalog file header is missing required columns")
	// ErrMalformedRow marks a row that cannot become a book.
	ErrMalformedRow = errors.New("malformed catalog row")
)

// Write replaces the file at path with one line per book. The new content
// is written to a temporary file first so readers never see a partial file.
func Write(path string, books []models.Book) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.csv")
	if err != nil {
		return fmt.Errorf("create temp catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, books); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}

func encode(w io.Writer, books []models.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range books {
		if err := cw.Write(record(&books[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(b *models.Book) []string {
	return []string{
		b.Title,
		b.Category,
		money(b.Price),
		money(b.PriceExclTax),
		money(b.PriceInclTax),
		strconv.Itoa(b.Rating),
		b.UPC,
		strconv.Itoa(b.Availability),
		b.Description,
		b.ImageURL,
		b.BookURL,
		strconv.Itoa(b.NumberOfReviews),
		b.ProductType,
		money(b.Tax),
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Row is one data line keyed by column name. Err is set when the line
// itself could not be parsed as delimited text.
type Row struct {
	Line   int
	Fields map[string]string
	Err    error
}

// Get returns the trimmed value of a column, "" when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r.Fields[col])
}

// Read streams the rows of the file at path to fn in file order. Lines with
// fewer cells than the header read the missing cells as empty. Read stops at
// the first error returned by fn.
func Read(path string, fn func(Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decode(f, fn)
}

func decode(in io.Reader, fn func(Row) error) error {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"title", "upc"} {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumns, col)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		row := Row{Line: line}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return fmt.Errorf("read line %d: %w", line, err)
			}
			row.Err = err
		} else {
			row.Fields = make(map[string]string, len(index))
			for col, i := range index {
				if i < len(rec) {
					row.Fields[col] = rec[i]
				}
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ParseRow converts a row into a book. Missing title or upc, unparseable or
// negative numbers make the row malformed; an empty category becomes
// "unknown" and the rating is clamped to [0,5].
func ParseRow(r Row) (models.Book, error) {
	if r.Err != nil {
		return models.Book{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, r.Line, r.Err)
	}
	b := models.Book{
		Title:       r.Get("title"),
		Category:    r.Get("category"),
		UPC:         r.Get("upc"),
		Description: r.Get("description"),
		ImageURL:    r.Get("image_url"),
		BookURL:     r.Get("book_url"),
		ProductType: r.Get("product_type"),
	}

	var missing []string
	if b.Title == "" {
		missing = append(missing, "title")
	}
	if b.UPC == "" {
		missing = append(missing, "upc")
	}
	if len(missing) > 0 {
		return models.Book{}, fmt.Errorf("%w: line %d: missing %s", ErrMalformedRow, r.Line, strings.Join(missing, ", "))
	}
	if b.Category == "" {
		b.Category = models.UnknownCategory
	}

	// Cells may hold plain numbers or the text the site displays, e.g.
	// "£51.77" or "In stock (22 available)".
	cells := []struct {
		col   string
		parse func(s string) error
	}{
		{"price", floatInto(&b.Price)},
		{"price_excl_tax", floatInto(&b.PriceExclTax)},
		{"price_incl_tax", floatInto(&b.PriceInclTax)},
		{"tax", floatInto(&b.Tax)},
		{"rating", intInto(&b.Rating, textnum.Count)},
		{"availability", intInto(&b.Availability, textnum.Availability)},
		{"number_of_reviews", intInto(&b.NumberOfReviews, textnum.Count)},
	}
	for _, c := range cells {
		v := r.Get(c.col)
		if v == "" {
			continue
		}
		if err := c.parse(v); err != nil {
			return models.Book{}, fmt.Errorf("%w: line %d: %s: %q: %v", ErrMalformedRow, r.Line, c.col, v, err)
		}
	}

	if b.Rating > 5 {
		b.Rating = 5
	}
	return b, nil
}

func floatInto(dst *float64) func(string) error {
	return func(s string) error {
		v, err := textnum.Price(s)
		*dst = v
		return err
	}
}

func intInto(dst *int, parse func(string) (int, error)) func(string) error {
	return func(s string) error {
		v, err := parse(s)
		*dst = v
		return err
	}
}
