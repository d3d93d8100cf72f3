package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mathesar-foundation/testdb/internal/config"
	_ "modernc.org/sqlite"
)

// MemoryName is the sqlite name of a private in-memory database.
const MemoryName = ":memory:"

type sqliteEngine struct{}

func (sqliteEngine) Name() string    { return config.EngineSQLite }
func (sqliteEngine) Dialect() string { return "sqlite3" }

// TestName keeps an explicit test name, uses an in-memory database when the
// original is in-memory or unnamed, and otherwise puts test_<file> next to
// the original file.
func (sqliteEngine) TestName(cfg config.DatabaseConfig) string {
	if cfg.Test.Name != "" {
		return cfg.Test.Name
	}
	if cfg.Name == "" || isMemory(cfg.Name) {
		return MemoryName
	}
	return filepath.Join(filepath.Dir(cfg.Name), testPrefix+filepath.Base(cfg.Name))
}

func isMemory(name string) bool {
	return name == MemoryName || strings.Contains(name, "mode=memory")
}

func (sqliteEngine) Exists(_ context.Context, _ config.DatabaseConfig, name string) (bool, error) {
	if isMemory(name) {
		return false, nil
	}
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (sqliteEngine) Create(_ context.Context, _ config.DatabaseConfig, name string) error {
	if isMemory(name) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create database file: %w", err)
	}
	return f.Close()
}

// Destroy removes the database file and its WAL/SHM siblings.
func (sqliteEngine) Destroy(_ context.Context, _ config.DatabaseConfig, name string) error {
	if isMemory(name) {
		return nil
	}
	var errs []error
	for _, p := range []string{name, name + "-wal", name + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open enables WAL mode and foreign keys. A single connection is used so an
// in-memory database lives exactly as long as the pool.
func (sqliteEngine) Open(ctx context.Context, _ config.DatabaseConfig, name string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", name)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if !isMemory(name) {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}
