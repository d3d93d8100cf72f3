package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mathesar-foundation/testdb/internal/config"
)

var (
	// ErrUnknownAlias is returned when setup is asked for an alias that is not declared.
	ErrUnknownAlias = errors.New("unknown database alias")

	// ErrTestDatabaseExists is returned in interactive mode when an old test
	// database is found and destruction is not confirmed.
	ErrTestDatabaseExists = errors.New("test database already exists")
)

// SetupOptions controls SetupDatabases.
type SetupOptions struct {
	Verbosity int
	// Interactive asks Confirm before clobbering an existing test database.
	// When false, existing test databases are destroyed without asking.
	Interactive bool
	// Aliases restricts setup to these aliases. Empty means every declared alias.
	Aliases []string
	Confirm func(alias, name string) bool
	Logger  *log.Logger
}

// TeardownOptions controls TeardownDatabases.
type TeardownOptions struct {
	Verbosity int
	Logger    *log.Logger
}

// TestDatabase records one database created by SetupDatabases.
type TestDatabase struct {
	Alias        string `json:"alias"`
	Engine       string `json:"engine"`
	OriginalName string `json:"original_name"`
	Name         string `json:"name"`
	Destroy      bool   `json:"destroy"`

	settings config.DatabaseConfig
	conn     *DB
}

// Conn returns the live connection, or nil for a decoded handle.
func (t *TestDatabase) Conn() *DB { return t.conn }

// Exists reports whether the test database is still present. A decoded
// handle must be bound first.
func (t *TestDatabase) Exists(ctx context.Context) (bool, error) {
	engine, err := EngineFor(t.Engine)
	if err != nil {
		return false, err
	}
	return engine.Exists(ctx, t.settings, t.Name)
}

// Handle captures everything SetupDatabases created so TeardownDatabases
// can undo it.
type Handle struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Verbosity int             `json:"verbosity"`
	Databases []*TestDatabase `json:"databases"`
}

// Database returns the entry for alias.
func (h *Handle) Database(alias string) (*TestDatabase, bool) {
	if h == nil {
		return nil, false
	}
	for _, td := range h.Databases {
		if td.Alias == alias {
			return td, true
		}
	}
	return nil, false
}

// Aliases lists the aliases in the handle in creation order.
func (h *Handle) Aliases() []string {
	if h == nil {
		return nil
	}
	out := make([]string, 0, len(h.Databases))
	for _, td := range h.Databases {
		out = append(out, td.Alias)
	}
	return out
}

// Close closes the live connections without destroying anything.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	for _, td := range h.Databases {
		if td.conn == nil {
			continue
		}
		if err := td.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", td.Alias, err))
		}
		td.conn = nil
	}
	return errors.Join(errs...)
}

// Bind restores connection settings on a handle that was decoded from JSON.
func (h *Handle) Bind(dbs map[string]config.DatabaseConfig) error {
	for _, td := range h.Databases {
		cfg, ok := dbs[td.Alias]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAlias, td.Alias)
		}
		if cfg.Engine != td.Engine {
			return fmt.Errorf("alias %q engine changed from %s to %s", td.Alias, td.Engine, cfg.Engine)
		}
		td.settings = cfg
	}
	return nil
}

// SetupDatabases creates, opens and migrates a test database for each
// requested alias. Undeclared aliases are never touched. On failure every
// database created so far is destroyed before the error is returned.
func SetupDatabases(ctx context.Context, dbs map[string]config.DatabaseConfig, opts SetupOptions) (*Handle, error) {
	logger := orDiscard(opts.Logger)

	aliases, err := resolveAliases(dbs, opts.Aliases)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Verbosity: opts.Verbosity,
	}

	for _, alias := range aliases {
		td, err := createTestDatabase(ctx, alias, dbs[alias], opts, logger)
		if err != nil {
			if cleanupErr := TeardownDatabases(ctx, h, TeardownOptions{Verbosity: opts.Verbosity, Logger: logger}); cleanupErr != nil {
				logger.Warn("cleanup after failed setup", "err", cleanupErr)
			}
			return nil, fmt.Errorf("setting up test database for alias %q: %w", alias, err)
		}
		h.Databases = append(h.Databases, td)
	}
	return h, nil
}

func resolveAliases(dbs map[string]config.DatabaseConfig, requested []string) ([]string, error) {
	if len(requested) == 0 {
		all := make([]string, 0, len(dbs))
		for alias := range dbs {
			all = append(all, alias)
		}
		sort.Strings(all)
		return all, nil
	}

	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, alias := range requested {
		if seen[alias] {
			continue
		}
		if _, ok := dbs[alias]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
		}
		seen[alias] = true
		out = append(out, alias)
	}
	return out, nil
}

func createTestDatabase(ctx context.Context, alias string, cfg config.DatabaseConfig, opts SetupOptions, logger *log.Logger) (*TestDatabase, error) {
	engine, err := EngineFor(cfg.Engine)
	if err != nil {
		return nil, err
	}
	name := engine.TestName(cfg)

	if opts.Verbosity >= 1 {
		logger.Infof("Creating test database for alias '%s'%s...", alias, nameSuffix(opts.Verbosity, name))
	}

	exists, err := engine.Exists(ctx, cfg, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing test database: %w", err)
	}
	if exists {
		if opts.Interactive && (opts.Confirm == nil || !opts.Confirm(alias, name)) {
			return nil, fmt.Errorf("%w: %s", ErrTestDatabaseExists, name)
		}
		if opts.Verbosity >= 1 {
			logger.Infof("Destroying old test database for alias '%s'%s...", alias, nameSuffix(opts.Verbosity, name))
		}
		if err := engine.Destroy(ctx, cfg, name); err != nil {
			return nil, fmt.Errorf("destroying old test database: %w", err)
		}
	}

	if err := engine.Create(ctx, cfg, name); err != nil {
		return nil, err
	}
	td := &TestDatabase{
		Alias:        alias,
		Engine:       engine.Name(),
		OriginalName: cfg.Name,
		Name:         name,
		Destroy:      true,
		settings:     cfg,
	}

	conn, err := openNamed(ctx, alias, engine, cfg, name)
	if err != nil {
		_ = engine.Destroy(ctx, cfg, name)
		return nil, err
	}
	td.conn = conn

	if err := Migrate(ctx, conn, logger, opts.Verbosity); err != nil {
		_ = conn.Close()
		_ = engine.Destroy(ctx, cfg, name)
		return nil, err
	}
	return td, nil
}

// TeardownDatabases closes and destroys every database in h, newest first.
// All failures are collected and returned together.
func TeardownDatabases(ctx context.Context, h *Handle, opts TeardownOptions) error {
	if h == nil {
		return nil
	}
	logger := orDiscard(opts.Logger)

	var errs []error
	for i := len(h.Databases) - 1; i >= 0; i-- {
		td := h.Databases[i]
		if td.conn != nil {
			if err := td.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %q: %w", td.Alias, err))
			}
			td.conn = nil
		}
		if !td.Destroy {
			continue
		}
		engine, err := EngineFor(td.Engine)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if opts.Verbosity >= 1 {
			logger.Infof("Destroying test database for alias '%s'%s...", td.Alias, nameSuffix(opts.Verbosity, td.Name))
		}
		if err := engine.Destroy(ctx, td.settings, td.Name); err != nil {
			errs = append(errs, fmt.Errorf("destroying test database for alias %q: %w", td.Alias, err))
		}
	}
	return errors.Join(errs...)
}

func nameSuffix(verbosity int, name string) string {
	if verbosity < 2 {
		return ""
	}
	return fmt.Sprintf(" (%s)", name)
}
