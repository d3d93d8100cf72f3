// Package config loads the layered testdb configuration: the declared
// database aliases and the test runner settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// DefaultAlias is the alias the lifecycle manager creates and destroys.
const DefaultAlias = "default"

// Engines understood by the db package.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
)

// Config is the full testdb configuration.
type Config struct {
	Databases map[string]DatabaseConfig `mapstructure:"databases" toml:"databases" json:"databases"`
	Runner    RunnerConfig              `mapstructure:"runner" toml:"runner" json:"runner"`
}

// DatabaseConfig describes one declared database connection.
type DatabaseConfig struct {
	Engine   string     `mapstructure:"engine" toml:"engine" json:"engine"`
	Name     string     `mapstructure:"name" toml:"name" json:"name"`
	Host     string     `mapstructure:"host" toml:"host" json:"host,omitempty"`
	Port     int        `mapstructure:"port" toml:"port" json:"port,omitempty"`
	User     string     `mapstructure:"user" toml:"user" json:"user,omitempty"`
	Password string     `mapstructure:"password" toml:"password" json:"-"`
	SSLMode  string     `mapstructure:"sslmode" toml:"sslmode" json:"sslmode,omitempty"`
	Test     TestConfig `mapstructure:"test" toml:"test" json:"test"`
}

// TestConfig holds the per-alias overrides used when building the test database.
type TestConfig struct {
	// Name overrides the derived test database name.
	Name string `mapstructure:"name" toml:"name" json:"name,omitempty"`
}

// RunnerConfig holds the test runner settings.
type RunnerConfig struct {
	Verbosity int    `mapstructure:"verbosity" toml:"verbosity" json:"verbosity"`
	Addopts   string `mapstructure:"addopts" toml:"addopts" json:"addopts"`
	LogLevel  string `mapstructure:"log_level" toml:"log_level" json:"log_level"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	ProjectDir    string
	ConfigPath    string
	FlagOverrides map[string]any
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"runner.verbosity":            "TESTDB_VERBOSITY",
	"runner.addopts":              "TESTDB_ADDOPTS",
	"runner.log_level":            "TESTDB_LOG_LEVEL",
	"databases.default.engine":    "TESTDB_DEFAULT_ENGINE",
	"databases.default.name":      "TESTDB_DEFAULT_NAME",
	"databases.default.host":      "TESTDB_DEFAULT_HOST",
	"databases.default.port":      "TESTDB_DEFAULT_PORT",
	"databases.default.user":      "TESTDB_DEFAULT_USER",
	"databases.default.password":  "TESTDB_DEFAULT_PASSWORD",
	"databases.default.test.name": "TESTDB_DEFAULT_TEST_NAME",
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Databases: map[string]DatabaseConfig{
			DefaultAlias: {
				Engine: EngineSQLite,
				Name:   "mathesar.db",
			},
		},
		Runner: RunnerConfig{
			Verbosity: 0,
			LogLevel:  "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	def := d.Databases[DefaultAlias]
	v.SetDefault("databases.default.engine", def.Engine)
	v.SetDefault("databases.default.name", def.Name)
	v.SetDefault("databases.default.host", def.Host)
	v.SetDefault("databases.default.port", def.Port)
	v.SetDefault("databases.default.user", def.User)
	v.SetDefault("databases.default.password", def.Password)
	v.SetDefault("databases.default.sslmode", def.SSLMode)
	v.SetDefault("databases.default.test.name", def.Test.Name)
	v.SetDefault("runner.verbosity", d.Runner.Verbosity)
	v.SetDefault("runner.addopts", d.Runner.Addopts)
	v.SetDefault("runner.log_level", d.Runner.LogLevel)
}

// Load reads configuration with precedence
// defaults < user file < project file < environment < flag overrides.
func Load(opts LoadOptions) (Config, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolving working directory: %w", err)
		}
		projectDir = cwd
	}

	v := viper.New()
	setDefaults(v)

	userPath, projectPath := ConfigPaths(projectDir, opts.ConfigPath)
	if err := mergeConfigFile(v, userPath); err != nil {
		return Config{}, err
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return Config{}, err
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeConfigFile merges a TOML file into v. Empty or missing paths are ignored.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.SetConfigType("toml")
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ConfigPaths returns the user and project config file paths.
func ConfigPaths(projectDir, override string) (userPath, projectPath string) {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		userPath = filepath.Join(home, ".testdb", "config.toml")
	}
	return userPath, projectConfigPath(projectDir, override)
}

func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	if projectDir == "" {
		return filepath.Join(".testdb", "config.toml")
	}
	return filepath.Join(projectDir, ".testdb", "config.toml")
}

// Validate checks cfg and reports every problem at once.
func Validate(cfg Config) error {
	var problems []string

	if _, ok := cfg.Databases[DefaultAlias]; !ok {
		problems = append(problems, fmt.Sprintf("databases.%s must be declared", DefaultAlias))
	}

	aliases := make([]string, 0, len(cfg.Databases))
	for alias := range cfg.Databases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		dbCfg := cfg.Databases[alias]
		switch dbCfg.Engine {
		case EngineSQLite, EnginePostgres, EngineMySQL:
		default:
			problems = append(problems, fmt.Sprintf("databases.%s.engine %q is not one of sqlite, postgres, mysql", alias, dbCfg.Engine))
		}
		if dbCfg.Engine != EngineSQLite && strings.TrimSpace(dbCfg.Name) == "" {
			problems = append(problems, fmt.Sprintf("databases.%s.name is required", alias))
		}
		if dbCfg.Port < 0 || dbCfg.Port > 65535 {
			problems = append(problems, fmt.Sprintf("databases.%s.port %d out of range", alias, dbCfg.Port))
		}
	}

	if cfg.Runner.Verbosity < 0 {
		problems = append(problems, "runner.verbosity must be >= 0")
	}
	if _, err := log.ParseLevel(cfg.Runner.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("runner.log_level %q is invalid", cfg.Runner.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
