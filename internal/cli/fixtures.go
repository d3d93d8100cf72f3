package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mathesar-foundation/testdb/internal/db"
	"github.com/mathesar-foundation/testdb/internal/testdb"
	"github.com/spf13/cobra"
)

var flagFixturesCheck bool

func init() {
	fixturesCmd.Flags().BoolVar(&flagFixturesCheck, "check", false, "fail when a fixture file is missing under the project directory")

	rootCmd.AddCommand(fixturesCmd)
}

type fixture struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Delimiter string `json:"delimiter"`
	Exists    *bool  `json:"exists,omitempty"`
}

type fixtureList []fixture

func (l fixtureList) String() string {
	lines := make([]string, 0, len(l))
	for _, f := range l {
		line := fmt.Sprintf("%-13s %s", f.Name, f.Path)
		if f.Exists != nil && !*f.Exists {
			line += " (missing)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Print the fixture data file paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := fixtureList{
			{Name: "csv_filename", Path: testdb.CSVFilename()},
			{Name: "tsv_filename", Path: testdb.TSVFilename()},
		}
		var missing []string
		if flagFixturesCheck {
			project, err := projectPath()
			if err != nil {
				return err
			}
			for i := range list {
				_, err := os.Stat(filepath.Join(project, list[i].Path))
				exists := err == nil
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", list[i].Path, err)
				}
				list[i].Exists = &exists
				if !exists {
					missing = append(missing, list[i].Path)
				}
			}
		}
		for i := range list {
			list[i].Delimiter = db.DelimiterFor(list[i].Path)
		}

		if err := newWriter(cmd).Write(list); err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing fixture files: %s", strings.Join(missing, ", "))
		}
		return nil
	},
}
