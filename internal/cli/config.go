package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/BurntSushi/toml"
	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/output"
	"github.com/spf13/cobra"
)

var (
	flagConfigGlobal bool
)

func init() {
	configCmd.PersistentFlags().BoolVar(&flagConfigGlobal, "global", false, "operate on user config (~/.testdb/config.toml)")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or modify testdb configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = redacted(cfg)
		out := newWriter(cmd)
		if out.Format() == output.FormatText {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		}
		return out.Write(cfg)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		val, ok := config.GetValue(redacted(cfg), args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		return newWriter(cmd).Write(keyValue{Key: args[0], Value: val})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the project (or --global) config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}

		value, err := config.ParseValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := config.WriteValue(target, args[0], value); err != nil {
			return err
		}

		return newWriter(cmd).Write(keyValue{Key: args[0], Value: value, Path: target})
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR (default: vi)",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}

		// Seed a missing file with the default alias so the editor has something to show.
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			def := config.DefaultConfig().Databases[config.DefaultAlias]
			if err := config.WriteValue(target, "databases.default.engine", def.Engine); err != nil {
				return err
			}
			if err := config.WriteValue(target, "databases.default.name", def.Name); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		editCmd := exec.Command(editor, target)
		editCmd.Stdin = cmd.InOrStdin()
		editCmd.Stdout = cmd.OutOrStdout()
		editCmd.Stderr = cmd.ErrOrStderr()
		return editCmd.Run()
	},
}

func configTarget() (string, error) {
	project, err := projectPath()
	if err != nil {
		return "", err
	}
	userPath, projectPath := config.ConfigPaths(project, flagConfig)
	if flagConfigGlobal {
		return userPath, nil
	}
	return projectPath, nil
}

type keyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Path  string `json:"path,omitempty"`
}

func (kv keyValue) String() string {
	if kv.Path != "" {
		return fmt.Sprintf("%s = %v (%s)", kv.Key, kv.Value, kv.Path)
	}
	return fmt.Sprintf("%s = %v", kv.Key, kv.Value)
}

// redacted masks passwords so config can be printed.
func redacted(cfg config.Config) config.Config {
	out := cfg
	out.Databases = make(map[string]config.DatabaseConfig, len(cfg.Databases))
	for alias, d := range cfg.Databases {
		if d.Password != "" {
			d.Password = "********"
		}
		out.Databases[alias] = d
	}
	return out
}
