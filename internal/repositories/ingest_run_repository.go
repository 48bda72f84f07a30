package repositories

import (
	"context"
	"fmt"

	"bookshelf/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngestRunRepository records ingestion runs.
type IngestRunRepository interface {
	Create(ctx context.Context, run *models.IngestRun) error
	// Recent returns the latest runs, newest first.
	Recent(ctx context.Context, limit int) ([]models.IngestRun, error)
}

// GORMIngestRunRepository is a GORM implementation of IngestRunRepository.
type GORMIngestRunRepository struct {
	db *gorm.DB
}

// NewGORMIngestRunRepository creates a new instance of GORMIngestRunRepository.
func NewGORMIngestRunRepository(db *gorm.DB) *GORMIngestRunRepository {
	return &GORMIngestRunRepository{db: db}
}

func (r *GORMIngestRunRepository) Create(ctx context.Context, run *models.IngestRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

func (r *GORMIngestRunRepository) Recent(ctx context.Context, limit int) ([]models.IngestRun, error) {
	runs := []models.IngestRun{}
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}
	return runs, nil
}
