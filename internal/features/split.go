package features

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Training-data defaults.
const (
	DefaultSampleSize = 500
	DefaultTrainRatio = 0.8
	DefaultSeed       = 42
)

// ErrInvalidSplit is returned for a ratio outside (0,1) or a non-positive sample size.
var ErrInvalidSplit = errors.New("invalid training split")

// LabeledRow pairs a feature row with its label, the book price.
type LabeledRow struct {
	Features FeatureRow `json:"features"`
	Label    float64    `json:"label"`
}

// TrainingSet is the result of Split.
type TrainingSet struct {
	Train      []LabeledRow `json:"train"`
	Test       []LabeledRow `json:"test"`
	Total      int          `json:"total"`
	SampleSize int          `json:"sample_size"`
	TrainRatio float64      `json:"train_split"`
	Seed       int64        `json:"random_state"`
}

// Split samples min(sampleSize, len(rows)) rows with a generator seeded by
// seed and puts floor(trainRatio*m) of them in the train side. The same
// inputs always give the same partition.
func Split(rows []FeatureRow, labels []float64, trainRatio float64, seed int64, sampleSize int) (TrainingSet, error) {
	if len(rows) != len(labels) {
		return TrainingSet{}, fmt.Errorf("%w: %d rows but %d labels", ErrInvalidSplit, len(rows), len(labels))
	}
	if !(trainRatio > 0 && trainRatio < 1) {
		return TrainingSet{}, fmt.Errorf("%w: train_split must be between 0 and 1, got %v", ErrInvalidSplit, trainRatio)
	}
	if sampleSize <= 0 {
		return TrainingSet{}, fmt.Errorf("%w: sample_size must be positive, got %d", ErrInvalidSplit, sampleSize)
	}

	m := min(sampleSize, len(rows))
	perm := rand.New(rand.NewSource(seed)).Perm(len(rows))[:m]
	cut := int(math.Floor(trainRatio * float64(m)))

	set := TrainingSet{
		Train:      make([]LabeledRow, 0, cut),
		Test:       make([]LabeledRow, 0, m-cut),
		Total:      len(rows),
		SampleSize: sampleSize,
		TrainRatio: trainRatio,
		Seed:       seed,
	}
	for i, idx := range perm {
		lr := LabeledRow{Features: rows[idx], Label: labels[idx]}
		if i < cut {
			set.Train = append(set.Train, lr)
		} else {
			set.Test = append(set.Test, lr)
		}
	}
	return set, nil
}
