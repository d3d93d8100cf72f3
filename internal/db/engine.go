package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mathesar-foundation/testdb/internal/config"
)

// Engine creates, destroys and opens databases for one backend.
type Engine interface {
	// Name is the config engine name ("sqlite", "postgres", "mysql").
	Name() string
	// Dialect is the goose dialect and the migrations subdirectory.
	Dialect() string
	// TestName derives the ephemeral test database name for cfg.
	TestName(cfg config.DatabaseConfig) string
	Exists(ctx context.Context, cfg config.DatabaseConfig, name string) (bool, error)
	Create(ctx context.Context, cfg config.DatabaseConfig, name string) error
	Destroy(ctx context.Context, cfg config.DatabaseConfig, name string) error
	Open(ctx context.Context, cfg config.DatabaseConfig, name string) (*sql.DB, error)
}

const testPrefix = "test_"

// EngineFor returns the engine registered under name.
func EngineFor(name string) (Engine, error) {
	switch name {
	case config.EngineSQLite:
		return sqliteEngine{}, nil
	case config.EnginePostgres:
		return postgresEngine{}, nil
	case config.EngineMySQL:
		return mysqlEngine{}, nil
	default:
		return nil, fmt.Errorf("unsupported database engine %q", name)
	}
}

// serverTestName is the naming rule shared by the server engines.
func serverTestName(cfg config.DatabaseConfig) string {
	if cfg.Test.Name != "" {
		return cfg.Test.Name
	}
	return testPrefix + cfg.Name
}

// withServer runs fn against a short-lived connection to a maintenance database.
func withServer(ctx context.Context, driver, dsn string, fn func(*sql.DB) error) error {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s server connection: %w", driver, err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s server: %w", driver, err)
	}
	return fn(conn)
}

func openAndPing(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
