package database

import (
	"fmt"
	"testing"

	"storefront/internal/logger"

	"github.com/google/uuid"
)

// NewTest opens a private in-memory sqlite database that is closed with the test.
func NewTest(t testing.TB) *Database {
	t.Helper()

	url := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := New(url, false, logger.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
