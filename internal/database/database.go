// Package database opens the relational store and creates its tables.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the store selected by driver ("sqlite" or "postgres").
// SQL statements slower than 200ms and errors are logged through log.
func Open(driver, dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	cfg := &gorm.Config{}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		if err := tuneSQLite(db, dsn); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// tuneSQLite pins an in-memory database to one connection, since it
// vanishes with its last one.
func tuneSQLite(db *gorm.DB, dsn string) error {
	if !inMemory(dsn) {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// sqliteDSN puts file databases in WAL mode, so readers do not block the
// ingest writer, and makes every pooled connection wait out short write
// locks. Options already present in dsn win.
func sqliteDSN(dsn string) string {
	if inMemory(dsn) {
		return dsn
	}
	for _, opt := range []string{"_journal_mode=WAL", "_busy_timeout=5000"} {
		key := opt[:strings.IndexByte(opt, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + opt
	}
	return dsn
}

func inMemory(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Migrate creates the tables when absent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Book{}, &models.User{}, &models.IngestRun{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	if err := backfillFolds(db); err != nil {
		return fmt.Errorf("failed to backfill search columns: %w", err)
	}
	return nil
}

// backfillFolds fills the search columns of rows stored before they existed.
func backfillFolds(db *gorm.DB) error {
	var batch []models.Book
	return db.Model(&models.Book{}).
		Where("title_fold = '' AND title <> ''").
		FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				batch[i].Fold()
				err := db.Model(&models.Book{}).Where("id = ?", batch[i].ID).UpdateColumns(map[string]any{
					"title_fold":    batch[i].TitleFold,
					"category_fold": batch[i].CategoryFold,
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// Ping checks that the store answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
