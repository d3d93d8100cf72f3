package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/db"
	"github.com/mathesar-foundation/testdb/internal/utils"
	"github.com/spf13/cobra"
)

var (
	flagSetupAliases     []string
	flagSetupInteractive bool
)

func init() {
	setupCmd.Flags().StringSliceVar(&flagSetupAliases, "alias", []string{config.DefaultAlias}, "aliases to create test databases for")
	setupCmd.Flags().BoolVar(&flagSetupInteractive, "interactive", false, "ask before destroying an existing test database")
	_ = setupCmd.RegisterFlagCompletionFunc("alias", completeAliases)

	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create and migrate the test databases, recording them in the handle file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, project, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := verbosity(cfg)
		if err != nil {
			return err
		}
		path := handlePath(project)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("handle %s already exists; run 'testdb teardown' first", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		opts := db.SetupOptions{
			Verbosity:   v,
			Interactive: flagSetupInteractive,
			Aliases:     flagSetupAliases,
			Logger:      newLogger(cmd, cfg, v),
		}
		if flagSetupInteractive {
			opts.Confirm = confirmDestroy(cmd.InOrStdin(), cmd.ErrOrStderr())
		}

		h, err := db.SetupDatabases(cmd.Context(), cfg.Databases, opts)
		if err != nil {
			return err
		}
		if err := h.Close(); err != nil {
			return err
		}
		if err := writeHandle(path, h); err != nil {
			_ = db.TeardownDatabases(cmd.Context(), h, db.TeardownOptions{})
			return err
		}

		out := newWriter(cmd)
		for _, td := range h.Databases {
			if td.Engine == config.EngineSQLite && td.Name == db.MemoryName {
				out.Warn(fmt.Sprintf("alias '%s' uses an in-memory database; it is gone once this process exits", td.Alias))
			}
		}
		return out.Write(handleView{Handle: h, Path: path})
	},
}

// confirmDestroy prompts on errOut and reads the answer from in.
func confirmDestroy(in io.Reader, errOut io.Writer) func(alias, name string) bool {
	reader := bufio.NewReader(in)
	return func(alias, name string) bool {
		for {
			fmt.Fprintf(errOut, "Type 'yes' if you would like to try deleting the test database '%s' for alias '%s', or 'no' to cancel: ",
				utils.SanitizeLine(name), utils.SanitizeLine(alias))
			answer, err := reader.ReadString('\n')
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "yes":
				return true
			case "no":
				return false
			}
			if err != nil {
				return false
			}
		}
	}
}

type handleView struct {
	Handle *db.Handle `json:"handle"`
	Path   string     `json:"path"`
}

func (v handleView) String() string {
	var b strings.Builder
	for _, td := range v.Handle.Databases {
		fmt.Fprintf(&b, "%-10s %-9s %s\n", td.Alias, td.Engine, td.Name)
	}
	fmt.Fprintf(&b, "handle %s (%s)", v.Handle.ID, v.Path)
	return b.String()
}
