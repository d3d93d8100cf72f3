package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version"`
	ConfigPath  string `json:"config_path"`
	ProjectPath string `json:"project_path"`
}

func (v versionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "testdb %s\n", v.Version)
	fmt.Fprintf(&b, "  commit:  %s\n", v.Commit)
	fmt.Fprintf(&b, "  built:   %s\n", v.BuildDate)
	fmt.Fprintf(&b, "  go:      %s\n", v.GoVersion)
	fmt.Fprintf(&b, "  config:  %s\n", v.ConfigPath)
	fmt.Fprintf(&b, "  project: %s", v.ProjectPath)
	return b.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := projectPath()
		_, configPath := config.ConfigPaths(project, flagConfig)

		return newWriter(cmd).Write(versionInfo{
			Version:     version,
			Commit:      commit,
			BuildDate:   date,
			GoVersion:   runtime.Version(),
			ConfigPath:  configPath,
			ProjectPath: project,
		})
	},
}
