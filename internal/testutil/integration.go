package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mathesar-foundation/testdb/internal/config"
)

// Harness is a lightweight integration test environment.
//
// It provisions a temp project directory with a `.testdb/config.toml` whose
// default alias points at a sqlite file inside the project, and isolates
// HOME so no user config leaks in.
type Harness struct {
	T          testing.TB
	ProjectDir string
	ConfigPath string
	DBPath     string
}

func NewHarness(t testing.TB) *Harness {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	projectDir := t.TempDir()
	configPath := filepath.Join(projectDir, ".testdb", "config.toml")
	dbPath := filepath.Join(projectDir, "mathesar.db")

	h := &Harness{
		T:          t,
		ProjectDir: projectDir,
		ConfigPath: configPath,
		DBPath:     dbPath,
	}
	h.Set("databases.default.engine", config.EngineSQLite)
	h.Set("databases.default.name", dbPath)
	return h
}

// Set writes key=value into the project config file.
func (h *Harness) Set(key string, value any) {
	h.T.Helper()
	if err := config.WriteValue(h.ConfigPath, key, value); err != nil {
		h.T.Fatalf("Harness.Set(%s): %v", key, err)
	}
}

// Config loads the project configuration.
func (h *Harness) Config() config.Config {
	h.T.Helper()
	cfg, err := config.Load(config.LoadOptions{ProjectDir: h.ProjectDir})
	if err != nil {
		h.T.Fatalf("Harness.Config: %v", err)
	}
	return cfg
}

// TestDBPath is where the sqlite engine puts the default alias test database.
func (h *Harness) TestDBPath() string {
	return filepath.Join(filepath.Dir(h.DBPath), "test_"+filepath.Base(h.DBPath))
}

// MustPath joins ProjectDir with parts, failing the test on error.
func (h *Harness) MustPath(parts ...string) string {
	h.T.Helper()
	if h == nil || h.ProjectDir == "" {
		h.T.Fatalf("Harness.MustPath: harness not initialized")
	}
	all := append([]string{h.ProjectDir}, parts...)
	return filepath.Join(all...)
}

// WriteFile writes a file relative to the project directory.
func (h *Harness) WriteFile(rel string, data []byte, perm os.FileMode) string {
	h.T.Helper()
	if strings.TrimSpace(rel) == "" {
		h.T.Fatalf("Harness.WriteFile: rel path is required")
	}
	abs := h.MustPath(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		h.T.Fatalf("Harness.WriteFile: mkdir: %v", err)
	}
	if err := os.WriteFile(abs, data, perm); err != nil {
		h.T.Fatalf("Harness.WriteFile: write: %v", err)
	}
	return abs
}

func (h *Harness) String() string {
	if h == nil {
		return "Harness<nil>"
	}
	return fmt.Sprintf("Harness(project=%s, db=%s)", h.ProjectDir, h.DBPath)
}
