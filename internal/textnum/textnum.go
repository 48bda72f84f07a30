// Package textnum reads numbers out of the text the catalog site displays.
// The scraper and the catalog loader share it so a cell means the same
// thing on both sides of the catalog file.
package textnum

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoNumber means the text holds no usable number.
	ErrNoNumber = errors.New("no number in text")
	// ErrNegative means the number is below zero.
	ErrNegative = errors.New("negative value")
)

var availableCount = regexp.MustCompile(`(\d+)\s*available`)

// Price reads a displayed price. A plain number is taken as is; anything
// else keeps only digits and '.', so "£51.77" and "Â£51.77" give 51.77.
func Price(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return checkFloat(v)
	}
	var sb strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return 0, ErrNoNumber
	}
	return checkFloat(v)
}

func checkFloat(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNoNumber
	}
	if v < 0 {
		return 0, ErrNegative
	}
	return v, nil
}

// Availability reads a stock count: a bare integer, or N out of
// "In stock (N available)". Text without a count, such as "Out of stock",
// is 0.
func Availability(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return checkInt(n)
	}
	m := availableCount.FindStringSubmatch(s)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrNoNumber
	}
	return n, nil
}

// Count reads a non-negative integer such as a review count or a rating.
func Count(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrNoNumber
	}
	return checkInt(n)
}

func checkInt(n int) (int, error) {
	if n < 0 {
		return 0, ErrNegative
	}
	return n, nil
}
