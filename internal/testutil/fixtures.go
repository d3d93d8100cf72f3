package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mathesar-foundation/testdb/internal/db"
)

// DataFileOption customizes a test data file.
type DataFileOption func(*db.DataFile)

// MakeDataFile creates and inserts a data file row into the DB.
func MakeDataFile(t testing.TB, database *db.DB, opts ...DataFileOption) *db.DataFile {
	t.Helper()

	f := &db.DataFile{
		Path:   "mathesar/tests/data/patents.csv",
		Header: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	RequireNoError(t, database.CreateDataFile(context.Background(), f), "create data file")
	return f
}

// WithPath sets the data file path.
func WithPath(path string) DataFileOption {
	return func(f *db.DataFile) { f.Path = path }
}

// WithDelimiter sets an explicit delimiter.
func WithDelimiter(delim string) DataFileOption {
	return func(f *db.DataFile) { f.Delimiter = delim }
}

// WithoutHeader marks the file as having no header row.
func WithoutHeader() DataFileOption {
	return func(f *db.DataFile) { f.Header = false }
}

// ModuleRoot walks up from the working directory to the directory holding go.mod.
func ModuleRoot(t testing.TB) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("ModuleRoot: getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("ModuleRoot: no go.mod above working directory")
		}
		dir = parent
	}
}

// ResolveFixture turns a module-relative fixture path into an absolute one,
// failing the test if the file does not exist.
func ResolveFixture(t testing.TB, rel string) string {
	t.Helper()

	abs := filepath.Join(ModuleRoot(t), filepath.FromSlash(rel))
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.Fatalf("fixture %s does not exist (looked at %s)", rel, abs)
		}
		t.Fatalf("fixture %s: %v", rel, err)
	}
	return abs
}
