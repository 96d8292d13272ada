package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
)

// engineState is the --json shape of the stats command.
type engineState struct {
	Settings   chaos.Settings    `json:"settings"`
	Enabled    bool              `json:"enabled"`
	Active     chaos.Config      `json:"active"`
	Profiles   []string          `json:"profiles"`
	Scenarios  []string          `json:"scenarios"`
	Intercepts int               `json:"intercepts"`
	Sources    map[string]string `json:"sources,omitempty"`
	Stats      chaos.Stats       `json:"stats"`
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the configured chaos state and statistics",
		Long: `Show the engine state produced by the config file and MAYHEM_* variables:
settings, the active chaos config, registered profiles, scenarios and
intercept rules, and the statistics counters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newCmdEnv(cmd)
			if err != nil {
				return err
			}
			e := rt.engine

			names := make([]string, 0)
			for _, s := range e.Scenarios() {
				names = append(names, s.Name)
			}
			state := engineState{
				Settings:   e.Settings(),
				Enabled:    e.IsEnabled(),
				Active:     e.Active(),
				Profiles:   e.Profiles(),
				Scenarios:  names,
				Intercepts: len(e.Intercepts()),
				Sources:    rt.file.Sources,
				Stats:      e.Stats(),
			}

			return printResult(rt.out, state, func() {
				seed := "random"
				if state.Settings.Seed != nil {
					seed = strconv.FormatInt(*state.Settings.Seed, 10)
				}
				output.Title(rt.out, "chaos state")
				fmt.Fprintln(rt.out, output.Table([]string{"setting", "value"}, [][]string{
					{"enabled", strconv.FormatBool(state.Enabled)},
					{"seed", seed},
					{"active", summarizeConfig(state.Active)},
					{"profiles", strconv.Itoa(len(state.Profiles))},
					{"scenarios", strconv.Itoa(len(state.Scenarios))},
					{"intercepts", strconv.Itoa(state.Intercepts)},
				}))
				renderEngineStats(rt.out, state.Stats)
			})
		},
	}
}
