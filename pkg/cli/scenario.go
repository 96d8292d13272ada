package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
)

type scenarioOptions struct {
	duration       time.Duration
	target         string
	concurrent     int
	rps            float64
	requestTimeout time.Duration
}

// scenarioResult is the --json shape of the scenario command.
type scenarioResult struct {
	Scenario chaos.Scenario   `json:"scenario"`
	Load     *benchmarkResult `json:"load,omitempty"`
	Stats    chaos.Stats      `json:"stats"`
}

const defaultScenarioDuration = 5 * time.Second

func newScenarioCmd() *cobra.Command {
	var opts scenarioOptions

	cmd := &cobra.Command{
		Use:   "scenario <name>",
		Short: "Play a named chaos scenario",
		Long: `Play a registered scenario for its duration. Builtin scenarios are
networkPartition, highLatency, degraded, outage, recovery, blackFriday,
mobileNetwork, datacenterFailover, ddosAttack, coldStart, gcPause and
connectionPool; a config file may add more. A preset name plays that preset
as a scenario, and any other name plays a 50% failure rate.

With --target the endpoint is loaded for the whole scenario.

Examples:
  mayhem scenario outage --duration 5s
  mayhem scenario degraded --target https://api.example.com --rps 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, args[0], opts)
		},
	}

	fs := cmd.Flags()
	fs.DurationVar(&opts.duration, "duration", 0, "Override the scenario duration (default 5s when it has none)")
	fs.StringVar(&opts.target, "target", "", "URL to load while the scenario plays")
	fs.IntVar(&opts.concurrent, "concurrent", 4, "Concurrent requests against --target")
	fs.Float64Var(&opts.rps, "rps", 10, "Requests per second against --target (0 is unlimited)")
	fs.DurationVar(&opts.requestTimeout, "request-timeout", 10*time.Second, "Deadline per request against --target")
	return cmd
}

// resolveScenario finds name among the registered scenarios, falling back
// to a preset of that name and then to a 50% failure rate.
func resolveScenario(e *chaos.Engine, name string) chaos.Scenario {
	for _, s := range e.Scenarios() {
		if s.Name == name {
			return s
		}
	}
	if cfg, err := presetConfig(name); err == nil {
		return chaos.Scenario{Name: name, Config: cfg}
	}
	return chaos.Scenario{Name: name, Config: chaos.Config{Fail: 0.5}}
}

func runScenario(cmd *cobra.Command, name string, opts scenarioOptions) error {
	rt, err := newCmdEnv(cmd)
	if err != nil {
		return err
	}

	s := resolveScenario(rt.engine, name)
	if opts.duration > 0 {
		s.Duration = opts.duration
	}
	if s.Duration <= 0 {
		s.Duration = defaultScenarioDuration
	}
	rt.engine.Scenario(s)

	progress := rt.out
	if globals.json {
		progress = io.Discard
	}
	fmt.Fprintln(progress, output.Styles.Warning.Render("running scenario: "+s.Name))
	fmt.Fprintln(progress, output.Styles.Muted.Render("duration: "+s.Duration.String()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var loadDone chan benchmarkResult
	if opts.target != "" {
		p, err := rt.pipeline(fetcher(rt.client()), chaos.Config{}, resilienceFlags{}, opts.target)
		if err != nil {
			return err
		}
		loadDone = make(chan benchmarkResult, 1)
		go func() {
			loadDone <- load(ctx, p.Call, opts.target, benchmarkOptions{
				concurrent:     opts.concurrent,
				duration:       s.Duration,
				rps:            opts.rps,
				requestTimeout: opts.requestTimeout,
			})
		}()
	}

	if err := rt.engine.Play(ctx, s.Name); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	res := scenarioResult{Scenario: s}
	if loadDone != nil {
		r := <-loadDone
		r.URL = opts.target
		res.Load = &r
	}
	res.Stats = rt.engine.Stats()

	err = printResult(rt.out, res, func() {
		fmt.Fprintln(rt.out, output.Styles.Success.Render("scenario complete"))
		if res.Load != nil {
			renderBenchmark(rt.out, *res.Load)
		}
		renderEngineStats(rt.out, res.Stats)
	})
	if err != nil {
		return err
	}
	return rt.writeMetrics()
}

func renderEngineStats(w io.Writer, st chaos.Stats) {
	output.Title(w, "chaos statistics")
	rows := [][]string{
		{"calls", strconv.FormatInt(st.Calls, 10)},
		{"failures", strconv.FormatInt(st.Failures, 10)},
		{"timeouts", strconv.FormatInt(st.Timeouts, 10)},
		{"delays", strconv.FormatInt(st.Delays, 10)},
		{"corrupted", strconv.FormatInt(st.Corrupted, 10)},
		{"rateLimited", strconv.FormatInt(st.RateLimited, 10)},
		{"streamsCut", strconv.FormatInt(st.StreamsCut, 10)},
	}
	fmt.Fprintln(w, output.Table([]string{"counter", "value"}, rows))
}
