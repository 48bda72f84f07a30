package textnum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr error
	}{
		{"51.77", 51.77, nil},
		{"£51.77", 51.77, nil},
		{"Â£51.77", 51.77, nil},
		{"£1,234.50", 1234.50, nil},
		{"  20 ", 20, nil},
		{"-3.5", 0, ErrNegative},
		{"", 0, ErrNoNumber},
		{"cheap", 0, ErrNoNumber},
		{"1.2.3", 0, ErrNoNumber},
		{"NaN", 0, ErrNoNumber},
	}
	for _, tt := range tests {
		got, err := Price(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		if tt.wantErr == nil {
			assert.NoError(t, err, "input %q", tt.in)
		} else {
			assert.ErrorIs(t, err, tt.wantErr, "input %q", tt.in)
		}
	}
}

func TestAvailability(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"22", 22, nil},
		{"In stock (22 available)", 22, nil},
		{"In stock (1 available)", 1, nil},
		{"In stock", 0, nil},
		{"Out of stock", 0, nil},
		{"", 0, nil},
		{"-2", 0, ErrNegative},
	}
	for _, tt := range tests {
		got, err := Availability(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		if tt.wantErr == nil {
			assert.NoError(t, err, "input %q", tt.in)
		} else {
			assert.ErrorIs(t, err, tt.wantErr, "input %q", tt.in)
		}
	}
}

func TestCount(t *testing.T) {
	n, err := Count(" 7 ")
	assert.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = Count("seven")
	assert.ErrorIs(t, err, ErrNoNumber)
	_, err = Count("-1")
	assert.ErrorIs(t, err, ErrNegative)
}
