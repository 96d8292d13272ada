package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
	"github.com/getmockd/mayhem/pkg/diagnostics"
)

type testOptions struct {
	chaos          chaosFlags
	resilience     resilienceFlags
	count          int
	requestTimeout time.Duration
	report         bool
}

// testResult is the --json shape of the test command.
type testResult struct {
	URL      string            `json:"url"`
	Config   chaos.Config      `json:"config"`
	Timeouts int               `json:"timeouts"`
	Stats    diagnostics.Stats `json:"stats"`
}

func newTestCmd() *cobra.Command {
	var opts testOptions

	cmd := &cobra.Command{
		Use:   "test <url>",
		Short: "Send requests to an endpoint with chaos injected",
		Long: `Send a fixed number of sequential GET requests to an endpoint, injecting
failures, hangs and latency, and report what happened to each.

Progress marks: "." success, "X" failure, "T" timed out or hung.

Examples:
  # 10% failures
  mayhem test https://api.example.com --fail 0.1

  # Use a preset and retry up to 3 attempts
  mayhem test https://api.example.com --preset nightmare --retry 3

  # Reproducible run with the full diagnostics report
  mayhem test https://api.example.com --fail 0.3 --seed 42 --report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args[0], opts)
		},
	}

	opts.chaos.register(cmd)
	opts.resilience.register(cmd)
	cmd.Flags().IntVar(&opts.count, "count", 10, "Number of requests")
	cmd.Flags().DurationVar(&opts.requestTimeout, "request-timeout", 10*time.Second, "Deadline per request")
	cmd.Flags().BoolVar(&opts.report, "report", false, "Print the full diagnostics report")
	return cmd
}

func runTest(cmd *cobra.Command, url string, opts testOptions) error {
	if opts.count < 1 {
		return fmt.Errorf("--count must be >= 1, got %d", opts.count)
	}
	cfg, err := opts.chaos.config()
	if err != nil {
		return err
	}
	rt, err := newCmdEnv(cmd)
	if err != nil {
		return err
	}
	p, err := rt.pipeline(fetcher(rt.client()), cfg, opts.resilience, url)
	if err != nil {
		return err
	}

	session := diagnostics.New()
	detach := session.Attach(rt.engine)
	defer detach()

	progress := rt.out
	if globals.json {
		progress = io.Discard
	}
	fmt.Fprintln(progress, output.Styles.Warning.Render(fmt.Sprintf("testing %s with %d requests", url, opts.count)))

	ctx := cmd.Context()
	timeouts := 0
	for i := range opts.count {
		id := i + 1
		session.Before(id)

		reqCtx, cancel := context.WithTimeout(ctx, opts.requestTimeout)
		start := time.Now()
		resp, err := p.Call(reqCtx, url)
		elapsed := time.Since(start)
		cancel()

		o := classify(err)
		if o == outcomeTimeout {
			timeouts++
		}
		if err != nil {
			session.Failure(id, elapsed, err)
		} else {
			session.Success(id, elapsed, strconv.Itoa(resp.Status))
		}
		fmt.Fprint(progress, styleMark(o))

		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(progress)

	st := session.Stats()
	err = printResult(rt.out, testResult{URL: url, Config: cfg, Timeouts: timeouts, Stats: st}, func() {
		renderTestSummary(rt.out, st, timeouts)
		if opts.report {
			fmt.Fprintln(rt.out)
			_ = diagnostics.WriteReport(rt.out, st)
		}
	})
	if err != nil {
		return err
	}
	return rt.writeMetrics()
}

func styleMark(o outcome) string {
	switch o {
	case outcomeSuccess:
		return output.Styles.Success.Render(o.mark())
	case outcomeTimeout:
		return output.Styles.Warning.Render(o.mark())
	default:
		return output.Styles.Error.Render(o.mark())
	}
}

func renderTestSummary(w io.Writer, st diagnostics.Stats, timeouts int) {
	failed := st.Failed - timeouts
	output.Title(w, "results")
	fmt.Fprintln(w, output.Table(
		[]string{"outcome", "requests", "share"},
		[][]string{
			{"success", countOf(st.Succeeded, st.Total), share(st.Succeeded, st.Total)},
			{"failed", countOf(failed, st.Total), share(failed, st.Total)},
			{"timeouts", countOf(timeouts, st.Total), share(timeouts, st.Total)},
		},
	))

	output.Title(w, "latency")
	fmt.Fprintln(w, latencyTable(
		namedSummary{"success", st.Latency.Success},
		namedSummary{"failure", st.Latency.Failure},
	))

	if len(st.Events) > 0 {
		output.Title(w, "chaos events")
		rows := make([][]string, 0, len(st.Events))
		for _, ev := range st.Events {
			rows = append(rows, []string{string(ev.Type), strconv.Itoa(ev.Count), strconv.Itoa(ev.Percent) + "%"})
		}
		fmt.Fprintln(w, output.Table([]string{"event", "count", "share"}, rows))
	}
}

func countOf(n, total int) string {
	return fmt.Sprintf("%d/%d", n, total)
}

func share(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", (n*100+total/2)/total)
}
