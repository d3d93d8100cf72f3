// Package cli implements the Cobra command-line interface for testdb.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/output"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig  string
	flagOutput  string
	flagJSON    bool
	flagVerbose int
	flagProject string
	flagHandle  string
)

const defaultHandlePath = ".testdb/handle.json"

var rootCmd = &cobra.Command{
	Use:   "testdb",
	Short: "Session-scoped test databases for the Mathesar test suite",
	Long: `testdb creates the test database for the "default" alias, applies the
schema migrations, and destroys it again when the session ends.

The same lifecycle runs automatically from TestMain; these commands drive it
by hand across processes, recording what was created in a handle file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := output.ParseFormat(GetOutput()); err != nil {
			return err
		}
		if flagProject == "" {
			return nil
		}
		abs, err := filepath.Abs(flagProject)
		if err != nil {
			return err
		}
		flagProject = abs
		if err := os.Chdir(flagProject); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagProject, err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		showQuickReference(cmd.OutOrStdout())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput returns the configured output format.
// Precedence: CLI flags > TESTDB_OUTPUT_FORMAT env > default
func GetOutput() string {
	if flagJSON {
		return string(output.FormatJSON)
	}
	if flagOutput != string(output.FormatText) {
		return flagOutput
	}
	if envFormat := os.Getenv("TESTDB_OUTPUT_FORMAT"); envFormat != "" {
		if f, err := output.ParseFormat(envFormat); err == nil {
			return string(f)
		}
	}
	return flagOutput
}

func newWriter(cmd *cobra.Command) *output.Writer {
	return output.New(output.Format(GetOutput()),
		output.WithOutput(cmd.OutOrStdout()),
		output.WithErrorOutput(cmd.ErrOrStderr()),
		output.WithStyler(stylerFor(cmd.ErrOrStderr())),
	)
}

func projectPath() (string, error) {
	if flagProject != "" {
		return flagProject, nil
	}
	return os.Getwd()
}

func loadConfig() (config.Config, string, error) {
	project, err := projectPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(config.LoadOptions{
		ProjectDir: project,
		ConfigPath: flagConfig,
	})
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, project, nil
}

// handlePath resolves --handle against the project directory.
func handlePath(project string) string {
	p := flagHandle
	if p == "" {
		p = defaultHandlePath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(project, p)
}

// verbosity combines the runner configuration with -v flags.
func verbosity(cfg config.Config) (int, error) {
	v, err := cfg.Runner.EffectiveVerbosity(false)
	if err != nil {
		return 0, err
	}
	return v + flagVerbose, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config, v int) *log.Logger {
	level, err := log.ParseLevel(cfg.Runner.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if v >= 2 {
		level = log.DebugLevel
	}
	return log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:  level,
		Prefix: "testdb",
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path (default <project>/.testdb/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: TESTDB_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")
	rootCmd.PersistentFlags().StringVar(&flagHandle, "handle", defaultHandlePath, "handle file recording the created test databases")

	_ = rootCmd.RegisterFlagCompletionFunc("output", completeOutputFormats)
}
