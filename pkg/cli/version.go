package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionOutput represents the JSON output for the version command.
type VersionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := VersionOutput{
				Version:   Version,
				Commit:    Commit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			w := cmd.OutOrStdout()
			return printResult(w, out, func() {
				fmt.Fprintf(w, "mayhem %s (commit %s, built %s)\n", out.Version, out.Commit, out.BuildDate)
				fmt.Fprintf(w, "%s %s\n", out.GoVersion, out.Platform)
			})
		},
	}
}
