// Package db provides the database utilities the test lifecycle drives:
// per-engine test database naming, creation and destruction, embedded
// migrations, and a small data-file repository on the default schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mathesar-foundation/testdb/internal/config"
)

// DB is an open connection to one database alias.
type DB struct {
	*sql.DB
	alias  string
	name   string
	engine Engine
}

// Alias returns the configuration alias this connection belongs to.
func (d *DB) Alias() string { return d.alias }

// Name returns the database name (or file path for sqlite).
func (d *DB) Name() string { return d.name }

// Engine returns the engine backing this connection.
func (d *DB) Engine() Engine { return d.engine }

// Open connects to the database named by cfg.Name for alias.
func Open(ctx context.Context, alias string, cfg config.DatabaseConfig) (*DB, error) {
	engine, err := EngineFor(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return openNamed(ctx, alias, engine, cfg, cfg.Name)
}

// OpenAndMigrate opens the database for alias and applies all migrations.
func OpenAndMigrate(ctx context.Context, alias string, cfg config.DatabaseConfig, logger *log.Logger) (*DB, error) {
	conn, err := Open(ctx, alias, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, conn, logger, 0); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func openNamed(ctx context.Context, alias string, engine Engine, cfg config.DatabaseConfig, name string) (*DB, error) {
	sqlDB, err := engine.Open(ctx, cfg, name)
	if err != nil {
		return nil, fmt.Errorf("opening %s database %q: %w", engine.Name(), name, err)
	}
	return &DB{DB: sqlDB, alias: alias, name: name, engine: engine}, nil
}

// rebind rewrites ? placeholders for engines that use numbered parameters.
func (d *DB) rebind(query string) string {
	if d.engine.Name() != config.EnginePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
