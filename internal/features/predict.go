package features

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PredictionInput mirrors the FeatureRow shape. Pointer fields tell a
// missing value apart from an explicit zero.
type PredictionInput struct {
	Category             *string  `json:"category" validate:"required"`
	Rating               *int     `json:"rating" validate:"required,min=0,max=5"`
	Availability         *int     `json:"availability" validate:"required,min=0"`
	InStock              *int     `json:"in_stock" validate:"required,min=0,max=1"`
	NumberOfReviews      *int     `json:"number_of_reviews" validate:"required,min=0"`
	TitleProcessed       []string `json:"title_processed"`
	DescriptionProcessed []string `json:"description_processed"`
}

// ValidationError lists what is wrong with a prediction payload.
type ValidationError struct {
	Missing []string          // required fields that are absent
	Invalid map[string]string // field -> failed rule
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	parts := make([]string, 0, len(e.Invalid))
	for f, rule := range e.Invalid {
		parts = append(parts, f+" failed "+rule)
	}
	sort.Strings(parts)
	return "invalid fields: " + strings.Join(parts, ", ")
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks in against its struct rules and returns a *ValidationError
// when anything is missing or out of range.
func Validate(v *validator.Validate, in PredictionInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Invalid: map[string]string{}}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			out.Missing = append(out.Missing, fe.Field())
			continue
		}
		out.Invalid[fe.Field()] = fe.Tag()
	}
	return out
}

// Predict is a fixed placeholder formula, not a trained model:
//
//	15 + 3*rating + 0.05*availability + 2*in_stock + 0.5*number_of_reviews
//	   + 0.25*len(title_processed) + 0.10*len(description_processed)
//
// rounded to two decimals and never negative. in must have passed Validate.
func Predict(in PredictionInput) float64 {
	p := 15.0 +
		3*float64(deref(in.Rating)) +
		0.05*float64(deref(in.Availability)) +
		2*float64(deref(in.InStock)) +
		0.5*float64(deref(in.NumberOfReviews)) +
		0.25*float64(len(in.TitleProcessed)) +
		0.10*float64(len(in.DescriptionProcessed))
	return math.Max(0, Round2(p))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
