package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
)

// presetList is the --json shape of the presets command.
type presetList struct {
	Environment []chaos.Preset   `json:"environment"`
	Provider    []chaos.Preset   `json:"provider"`
	Scenarios   []chaos.Scenario `json:"scenarios"`
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List presets and builtin scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := presetList{
				Environment: chaos.ListPresets(),
				Provider:    chaos.ListProviderPresets(),
				Scenarios:   chaos.BuiltinScenarios(),
			}
			w := cmd.OutOrStdout()
			return printResult(w, list, func() {
				output.Title(w, "environment presets")
				fmt.Fprintln(w, presetTable(list.Environment))
				output.Title(w, "provider presets")
				fmt.Fprintln(w, presetTable(list.Provider))
				output.Title(w, "scenarios")
				rows := make([][]string, 0, len(list.Scenarios))
				for _, s := range list.Scenarios {
					rows = append(rows, []string{s.Name, s.Duration.String(), s.Description})
				}
				fmt.Fprintln(w, output.Table([]string{"name", "duration", "description"}, rows))
			})
		},
	}
}

func presetTable(presets []chaos.Preset) string {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(presets))
	for _, p := range presets {
		rows = append(rows, []string{
			title.String(p.Name),
			p.Description,
			summarizeConfig(p.Config),
		})
	}
	return output.Table([]string{"preset", "description", "config"}, rows)
}

// summarizeConfig renders the non-zero knobs of cfg on one line.
func summarizeConfig(cfg chaos.Config) string {
	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return err.Error()
	}
	node.Style = yaml.FlowStyle
	data, err := yaml.Marshal(&node)
	if err != nil {
		return err.Error()
	}
	s := strings.Join(strings.Fields(string(data)), " ")
	s = strings.TrimPrefix(s, "{")
	return strings.TrimSuffix(s, "}")
}
