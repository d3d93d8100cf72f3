package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/db"
)

func TestNewHarness_ConfigPointsIntoProject(t *testing.T) {
	h := NewHarness(t)

	cfg := h.Config()
	def := cfg.Databases[config.DefaultAlias]
	RequireEqual(t, config.EngineSQLite, def.Engine, "engine")
	RequireEqual(t, h.DBPath, def.Name, "name")
	RequireEqual(t, filepath.Join(h.ProjectDir, "test_mathesar.db"), h.TestDBPath(), "test db path")

	if home := os.Getenv("HOME"); strings.HasPrefix(h.ProjectDir, home+string(filepath.Separator)) {
		t.Fatalf("project dir %s should not live under HOME %s", h.ProjectDir, home)
	}
}

func TestHarness_SetAndWriteFile(t *testing.T) {
	h := NewHarness(t)
	h.Set("runner.verbosity", 3)
	RequireEqual(t, 3, h.Config().Runner.Verbosity, "verbosity")

	path := h.WriteFile("a/b.txt", []byte("x"), 0600)
	data, err := os.ReadFile(path)
	RequireNoError(t, err, "read")
	RequireEqual(t, "x", string(data), "content")
	RequireContains(t, h.String(), h.ProjectDir, "String")
}

func TestNewTestDB_IsMigrated(t *testing.T) {
	database := NewTestDB(t)
	v, err := db.SchemaVersion(context.Background(), database)
	RequireNoError(t, err, "schema version")
	RequireEqual(t, int64(2), v, "version")
}

func TestMakeDataFile_Defaults(t *testing.T) {
	WithTestDB(t, func(database *db.DB) {
		f := MakeDataFile(t, database, WithPath("mathesar/tests/data/patents.tsv"), WithoutHeader())
		if f.ID == 0 {
			t.Fatalf("expected an ID")
		}
		RequireEqual(t, "\t", f.Delimiter, "delimiter")
		RequireEqual(t, false, f.Header, "header")
	})
}

func TestResolveFixture(t *testing.T) {
	csv := ResolveFixture(t, "mathesar/tests/data/patents.csv")
	if !filepath.IsAbs(csv) {
		t.Fatalf("expected absolute path, got %s", csv)
	}
	RequireEqual(t, filepath.Join(ModuleRoot(t), "mathesar", "tests", "data", "patents.csv"), csv, "path")
}

func TestCaptureLogger(t *testing.T) {
	logger, buf := CaptureLogger()
	logger.Info("hello")
	RequireContains(t, buf.String(), "hello", "captured")
}
