package db

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// Migrations returns the embedded migrations for a goose dialect.
func Migrations(dialect string) (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, path.Join("migrations", dialect))
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", dialect, err)
	}
	return sub, nil
}

// Migrate applies every pending migration to database. At verbosity 2 and
// above goose reports each applied file.
func Migrate(ctx context.Context, database *DB, logger *log.Logger, verbosity int) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(database, logger, verbosity); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, database.DB, "."); err != nil {
		return fmt.Errorf("applying migrations to %q: %w", database.Name(), err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func SchemaVersion(ctx context.Context, database *DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(database, nil, 0); err != nil {
		return 0, err
	}
	defer goose.SetBaseFS(nil)

	v, err := goose.GetDBVersionContext(ctx, database.DB)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func configureGoose(database *DB, logger *log.Logger, verbosity int) error {
	dialect := database.Engine().Dialect()
	fsys, err := Migrations(dialect)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	goose.SetBaseFS(fsys)
	goose.SetLogger(gooseLogger{l: orDiscard(logger)})
	goose.SetVerbose(verbosity >= 2)
	return nil
}

// gooseLogger routes goose output to a charmbracelet logger.
type gooseLogger struct {
	l *log.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}
