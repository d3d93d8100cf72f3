package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(DefaultConfig) unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Databases["tables"] = DatabaseConfig{Engine: "oracle", Port: 70000}
	cfg.Runner.Verbosity = -1
	cfg.Runner.LogLevel = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "config validation failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"databases.tables.engine", "databases.tables.name", "databases.tables.port", "runner.verbosity", "runner.log_level"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestValidate_MissingDefaultAlias(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Databases, DefaultAlias)
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "databases.default") {
		t.Fatalf("expected missing default alias error, got %v", err)
	}
}

func TestLoad_Precedence_DefaultsUserProjectEnvFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	project := t.TempDir()

	// User config: 1
	userPath := filepath.Join(home, ".testdb", "config.toml")
	if err := WriteValue(userPath, "runner.verbosity", 1); err != nil {
		t.Fatalf("WriteValue user: %v", err)
	}

	// Project config: 2
	projectPath := filepath.Join(project, ".testdb", "config.toml")
	if err := WriteValue(projectPath, "runner.verbosity", 2); err != nil {
		t.Fatalf("WriteValue project: %v", err)
	}

	// Env: 3
	t.Setenv("TESTDB_VERBOSITY", "3")

	// Flags: 4
	cfg, err := Load(LoadOptions{
		ProjectDir: project,
		FlagOverrides: map[string]any{
			"runner.verbosity": 4,
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runner.Verbosity != 4 {
		t.Fatalf("verbosity=%d want 4", cfg.Runner.Verbosity)
	}
}

func TestLoad_EnvOverridesProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()

	projectPath := filepath.Join(project, ".testdb", "config.toml")
	if err := WriteValue(projectPath, "databases.default.name", "from-file.db"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	t.Setenv("TESTDB_DEFAULT_NAME", "from-env.db")

	cfg, err := Load(LoadOptions{ProjectDir: project})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Databases[DefaultAlias].Name; got != "from-env.db" {
		t.Fatalf("name=%q want from-env.db", got)
	}
}

func TestLoad_ExtraAliasesFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()

	path := filepath.Join(project, ".testdb", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := `
[databases.default]
engine = "sqlite"
name = "app.db"

[databases.tables]
engine = "postgres"
name = "mathesar_tables"
host = "localhost"
port = 5432
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: project})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Databases) != 2 {
		t.Fatalf("aliases=%v want default and tables", cfg.Databases)
	}
	tables := cfg.Databases["tables"]
	if tables.Engine != EnginePostgres || tables.Port != 5432 || tables.Name != "mathesar_tables" {
		t.Fatalf("unexpected tables alias: %#v", tables)
	}
	if cfg.Databases[DefaultAlias].Name != "app.db" {
		t.Fatalf("unexpected default alias: %#v", cfg.Databases[DefaultAlias])
	}
}

func TestLoad_InvalidEnvValueErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TESTDB_VERBOSITY", "not-an-int")
	if _, err := Load(LoadOptions{ProjectDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_ProjectDirEmptyUsesCWD(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	project := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
	if err := os.Chdir(project); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	projectPath := filepath.Join(project, ".testdb", "config.toml")
	if err := WriteValue(projectPath, "runner.addopts", "-vv"); err != nil {
		t.Fatalf("WriteValue project: %v", err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: ""})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runner.Addopts != "-vv" {
		t.Fatalf("addopts=%q want -vv", cfg.Runner.Addopts)
	}
}

func TestMergeConfigFile(t *testing.T) {
	v := newTestViper()

	// Empty path is a no-op.
	if err := mergeConfigFile(v, ""); err != nil {
		t.Fatalf("mergeConfigFile(empty): %v", err)
	}

	// Missing file is a no-op.
	if err := mergeConfigFile(v, filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("mergeConfigFile(missing): %v", err)
	}

	// Directory path is an error.
	if err := mergeConfigFile(v, t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}

	// Invalid TOML is an error.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("runner = [\n"), 0644); err != nil {
		t.Fatalf("write invalid toml: %v", err)
	}
	if err := mergeConfigFile(v, path); err == nil {
		t.Fatalf("expected error for invalid toml")
	}
}

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestConfigPathsAndProjectConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	u, p := ConfigPaths("/proj", "")
	if u != filepath.Join(home, ".testdb", "config.toml") {
		t.Fatalf("unexpected user path: %q", u)
	}
	if p != filepath.Join("/proj", ".testdb", "config.toml") {
		t.Fatalf("unexpected project path: %q", p)
	}

	if got := projectConfigPath("", ""); got != ".testdb/config.toml" {
		t.Fatalf("projectConfigPath(empty)=%q", got)
	}
	if got := projectConfigPath("/proj", "/override.toml"); got != "/override.toml" {
		t.Fatalf("projectConfigPath(override)=%q", got)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("runner.verbosity", "2")
	if err != nil {
		t.Fatalf("ParseValue int: %v", err)
	}
	if v.(int) != 2 {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("databases.tables.port", "5432")
	if err != nil {
		t.Fatalf("ParseValue port: %v", err)
	}
	if v.(int) != 5432 {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("databases.default.test.name", "test_custom")
	if err != nil {
		t.Fatalf("ParseValue string: %v", err)
	}
	if v.(string) != "test_custom" {
		t.Fatalf("unexpected value: %#v", v)
	}

	if _, err := ParseValue("runner.verbosity", "lots"); err == nil {
		t.Fatalf("expected integer parse error")
	}

	if _, err := parseValueByKind("x", valueKind(123)); err == nil {
		t.Fatalf("expected error for unsupported value kind")
	}

	if _, err := ParseValue("nope.nope", "x"); err == nil {
		t.Fatalf("expected unsupported key error")
	}
}

func TestGetValue(t *testing.T) {
	cfg := DefaultConfig()
	def := cfg.Databases[DefaultAlias]

	cases := []struct {
		key  string
		want any
	}{
		{"runner", cfg.Runner},
		{"runner.verbosity", cfg.Runner.Verbosity},
		{"runner.addopts", cfg.Runner.Addopts},
		{"runner.log_level", cfg.Runner.LogLevel},

		{"databases", cfg.Databases},
		{"databases.default", def},
		{"databases.default.engine", def.Engine},
		{"databases.default.name", def.Name},
		{"databases.default.host", def.Host},
		{"databases.default.port", def.Port},
		{"databases.default.user", def.User},
		{"databases.default.password", def.Password},
		{"databases.default.sslmode", def.SSLMode},
		{"databases.default.test", def.Test},
		{"databases.default.test.name", def.Test.Name},
	}

	for _, tc := range cases {
		got, ok := GetValue(cfg, tc.key)
		if !ok {
			t.Fatalf("GetValue(%q) not found", tc.key)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("GetValue(%q)=%#v want %#v", tc.key, got, tc.want)
		}
	}

	badKeys := []string{
		"",
		"nope",
		"runner.nope",
		"databases.missing",
		"databases.default.nope",
		"databases.default.test.nope",
	}
	for _, key := range badKeys {
		if _, ok := GetValue(cfg, key); ok {
			t.Fatalf("expected %q to be not found", key)
		}
	}
}

func TestWriteValue(t *testing.T) {
	if err := WriteValue("", "runner.verbosity", 2); err == nil {
		t.Fatalf("expected error for empty path")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteValue(path, "runner.verbosity", 3); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	if err := WriteValue(path, "databases.default.test.name", "test_x"); err != nil {
		t.Fatalf("WriteValue nested: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "[runner]") || !strings.Contains(s, "verbosity = 3") {
		t.Fatalf("unexpected toml: %q", s)
	}
	if !strings.Contains(s, "[databases.default.test]") || !strings.Contains(s, `name = "test_x"`) {
		t.Fatalf("unexpected toml: %q", s)
	}

	// Error when an intermediate segment is not a table.
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("runner = \"oops\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteValue(bad, "runner.verbosity", 2); err == nil {
		t.Fatalf("expected error when runner is not a table")
	}
}

func TestWriteValue_DecodeExistingInvalidTOMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("runner = [\n"), 0644); err != nil {
		t.Fatalf("write invalid toml: %v", err)
	}
	if err := WriteValue(path, "runner.verbosity", 2); err == nil {
		t.Fatalf("expected decode error")
	} else if !strings.Contains(err.Error(), "decode config") {
		t.Fatalf("unexpected error: %v", err)
	}
}
