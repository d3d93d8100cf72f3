package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/db"
)

// SQLiteConfig returns a default-alias sqlite config for path.
func SQLiteConfig(path string) config.DatabaseConfig {
	return config.DatabaseConfig{Engine: config.EngineSQLite, Name: path}
}

// NewTestDB returns a temporary, migrated SQLite database for tests.
//
// The caller does not need to close it; cleanup is registered on t.Cleanup.
func NewTestDB(t testing.TB) *db.DB {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "mathesar.db")
	return NewTestDBAtPath(t, path)
}

// NewTestDBAtPath creates a migrated SQLite database at a specific path.
func NewTestDBAtPath(t testing.TB, path string) *db.DB {
	t.Helper()

	if path == "" {
		t.Fatalf("NewTestDBAtPath: path is required")
	}

	database, err := db.OpenAndMigrate(context.Background(), config.DefaultAlias, SQLiteConfig(path), TestLogger(t))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// WithTestDB runs fn with a temporary test database.
func WithTestDB(t testing.TB, fn func(database *db.DB)) {
	t.Helper()
	if fn == nil {
		t.Fatalf("WithTestDB: fn is required")
	}
	fn(NewTestDB(t))
}

// CleanupTestDB closes the db if non-nil. Prefer relying on t.Cleanup via NewTestDB.
func CleanupTestDB(database *db.DB) error {
	if database == nil {
		return nil
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("closing test db: %w", err)
	}
	return nil
}
