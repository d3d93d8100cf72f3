package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mathesar-foundation/testdb/internal/db"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(statusCmd)
}

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Destroy the test databases recorded in the handle file",
	Long: `Destroy the test databases recorded in the handle file.

A failure to destroy is reported as a warning and does not change the exit
status; the handle file is kept so teardown can be retried.`,
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
		h, err := readHandle(path)
		if err != nil {
			return err
		}

		out := newWriter(cmd)
		err = h.Bind(cfg.Databases)
		if err == nil {
			err = db.TeardownDatabases(cmd.Context(), h, db.TeardownOptions{
				Verbosity: v,
				Logger:    newLogger(cmd, cfg, v),
			})
		}
		if err != nil {
			out.Warn(fmt.Sprintf("Error when trying to teardown test databases: %q", err.Error()))
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove handle: %w", err)
		}
		out.Success(fmt.Sprintf("Destroyed test databases for %s", strings.Join(h.Aliases(), ", ")))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the test databases recorded in the handle file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, project, err := loadConfig()
		if err != nil {
			return err
		}
		h, err := readHandle(handlePath(project))
		if err != nil {
			return err
		}
		if err := h.Bind(cfg.Databases); err != nil {
			return err
		}

		report := statusReport{ID: h.ID, CreatedAt: h.CreatedAt.Format(time.RFC3339)}
		for _, td := range h.Databases {
			exists, err := td.Exists(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking %q: %w", td.Alias, err)
			}
			report.Databases = append(report.Databases, databaseStatus{
				Alias:  td.Alias,
				Engine: td.Engine,
				Name:   td.Name,
				Exists: exists,
			})
		}
		return newWriter(cmd).Write(report)
	},
}

type databaseStatus struct {
	Alias  string `json:"alias"`
	Engine string `json:"engine"`
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

type statusReport struct {
	ID        string           `json:"id"`
	CreatedAt string           `json:"created_at"`
	Databases []databaseStatus `json:"databases"`
}

func (r statusReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "handle %s created %s\n", r.ID, r.CreatedAt)
	for _, d := range r.Databases {
		state := "missing"
		if d.Exists {
			state = "present"
		}
		fmt.Fprintf(&b, "  %-10s %-9s %-8s %s\n", d.Alias, d.Engine, state, d.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
