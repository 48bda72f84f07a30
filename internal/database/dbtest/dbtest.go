// Package dbtest provides throwaway in-memory sqlite stores for tests.
package dbtest

import (
	"fmt"
	"testing"

	"bookshelf/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New returns a migrated in-memory database private to t. It is closed
// when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
