package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/cache"
	"bookshelf/internal/catalogfile"
	"bookshelf/internal/models"
	"bookshelf/internal/repositories"

	"github.com/sirupsen/logrus"
)

// EventIngestionCompleted is published after every committed load.
const EventIngestionCompleted = "ingestion.completed"

// maxReportedFailures caps the per-line failures echoed in a LoadSummary.
const maxReportedFailures = 50

var (
	// ErrCatalogFile means the catalog file is missing, unreadable or has no usable header.
	ErrCatalogFile = errors.New("catalog file unavailable")
	// ErrStoreUnavailable means the load could not be committed; nothing was written.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	PublishEvent(eventType string, payload interface{}) error
}

// FailedRow explains why one catalog line was skipped.
type FailedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadSummary is the outcome of one ingestion load.
type LoadSummary struct {
	RunID         string      `json:"run_id,omitempty"`
	SourceFile    string      `json:"source_file"`
	RowsProcessed int         `json:"rows_processed"`
	RowsUpserted  int         `json:"rows_upserted"`
	RowsFailed    int         `json:"rows_failed"`
	Failures      []FailedRow `json:"failures,omitempty"`
	DurationMS    int64       `json:"duration_ms"`
}

// IngestService loads the catalog file into the book table.
type IngestService struct {
	books     repositories.BookRepository
	runs      repositories.IngestRunRepository
	cache     cache.Cache
	publisher EventPublisher
	log       logrus.FieldLogger
}

// NewIngestService creates a new IngestService. c and publisher may be nil.
func NewIngestService(books repositories.BookRepository, runs repositories.IngestRunRepository, c cache.Cache, publisher EventPublisher, log logrus.FieldLogger) *IngestService {
	return &IngestService{
		books:     books,
		runs:      runs,
		cache:     c,
		publisher: publisher,
		log:       log,
	}
}

// Load reads the catalog file at path and upserts every well-formed row by
// UPC inside a single transaction. Malformed rows are counted and skipped.
// A store failure rolls the whole load back and returns ErrStoreUnavailable;
// an unusable file returns ErrCatalogFile before the store is touched.
func (s *IngestService) Load(ctx context.Context, path string) (LoadSummary, error) {
	started := time.Now()
	sum := LoadSummary{SourceFile: path}
	log := s.log.WithField("file", path)

	var books []models.Book
	err := catalogfile.Read(path, func(row catalogfile.Row) error {
		sum.RowsProcessed++
		book, err := catalogfile.ParseRow(row)
		if err != nil {
			sum.RowsFailed++
			if len(sum.Failures) < maxReportedFailures {
				sum.Failures = append(sum.Failures, FailedRow{Line: row.Line, Reason: err.Error()})
			}
			log.WithError(err).Debug("Catalog row skipped")
			return nil
		}
		books = append(books, book)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCatalogFile, err)
		s.record(ctx, sum, started, err)
		return sum, err
	}

	err = s.books.InTransaction(ctx, func(w repositories.BookWriter) error {
		for i := range books {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.Upsert(&books[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		s.record(ctx, sum, started, err)
		return sum, err
	}
	sum.RowsUpserted = len(books)
	sum.DurationMS = time.Since(started).Milliseconds()

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			log.WithError(err).Warn("Cache clear after ingestion failed")
		}
	}
	sum.RunID = s.record(ctx, sum, started, nil)
	if s.publisher != nil {
		if err := s.publisher.PublishEvent(EventIngestionCompleted, sum); err != nil {
			log.WithError(err).Warn("Ingestion event not published")
		}
	}

	log.WithFields(logrus.Fields{
		"processed": sum.RowsProcessed,
		"upserted":  sum.RowsUpserted,
		"failed":    sum.RowsFailed,
		"took_ms":   sum.DurationMS,
	}).Info("Ingestion finished")
	return sum, nil
}

// record writes the run record and returns its id. A failure here is only
// logged; the load result stands on its own.
func (s *IngestService) record(ctx context.Context, sum LoadSummary, started time.Time, loadErr error) string {
	if s.runs == nil {
		return ""
	}
	finished := time.Now()
	run := &models.IngestRun{
		SourceFile:    sum.SourceFile,
		Status:        models.IngestStatusCompleted,
		RowsProcessed: sum.RowsProcessed,
		RowsUpserted:  sum.RowsUpserted,
		RowsFailed:    sum.RowsFailed,
		StartedAt:     started,
		FinishedAt:    &finished,
	}
	if loadErr != nil {
		run.Status = models.IngestStatusFailed
		run.Error = loadErr.Error()
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.log.WithError(err).Warn("Ingest run not recorded")
		return ""
	}
	return run.ID
}

// RecentRuns returns the latest ingest runs, newest first.
func (s *IngestService) RecentRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = 20
	}
	return s.runs.Recent(ctx, limit)
}
