package models

import "time"

// Ingest run statuses.
const (
	IngestStatusCompleted = "COMPLETED"
	IngestStatusFailed    = "FAILED"
)

// IngestRun records the outcome of one load of the catalog file.
type IngestRun struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SourceFile    string     `json:"source_file" gorm:"type:varchar(1024)"`
	Status        string     `json:"status" gorm:"type:varchar(16);index"`
	RowsProcessed int        `json:"rows_processed"`
	RowsUpserted  int        `json:"rows_upserted"`
	RowsFailed    int        `json:"rows_failed"`
	Error         string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt     time.Time  `json:"started_at" gorm:"index"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
