package services

import (
	"context"
	"errors"
	"fmt"

	"bookshelf/internal/features"
	"bookshelf/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// FeatureService serves the encoded views of the catalog used by the ML endpoints.
type FeatureService struct {
	repo     repositories.BookRepository
	encoder  *features.Encoder
	validate *validator.Validate
}

// NewFeatureService creates a new FeatureService.
func NewFeatureService(repo repositories.BookRepository, encoder *features.Encoder) *FeatureService {
	return &FeatureService{
		repo:     repo,
		encoder:  encoder,
		validate: features.NewValidator(),
	}
}

// Features returns one page of encoded books in id order.
func (s *FeatureService) Features(ctx context.Context, p Pagination) (Page[features.FeatureRow], error) {
	books, total, err := s.repo.List(ctx, p.Offset(), p.PageSize)
	if err != nil {
		return Page[features.FeatureRow]{}, err
	}
	rows := make([]features.FeatureRow, len(books))
	for i, b := range books {
		rows[i] = s.encoder.Encode(b)
	}
	return NewPage(p, total, rows), nil
}

// TrainingData encodes the whole catalog and splits a reproducible sample
// into train and test sets labeled with the price.
func (s *FeatureService) TrainingData(ctx context.Context, sampleSize int, trainRatio float64, seed int64) (features.TrainingSet, error) {
	books, err := s.repo.ListAll(ctx)
	if err != nil {
		return features.TrainingSet{}, err
	}
	rows := make([]features.FeatureRow, len(books))
	labels := make([]float64, len(books))
	for i, b := range books {
		rows[i] = s.encoder.Encode(b)
		labels[i] = b.Price
	}
	set, err := features.Split(rows, labels, trainRatio, seed, sampleSize)
	if errors.Is(err, features.ErrInvalidSplit) {
		return set, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return set, err
}

// Predict validates in and applies the placeholder price formula.
// Validation failures are returned as *features.ValidationError.
func (s *FeatureService) Predict(in features.PredictionInput) (float64, error) {
	if err := features.Validate(s.validate, in); err != nil {
		return 0, err
	}
	return features.Predict(in), nil
}
