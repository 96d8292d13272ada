package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/getmockd/mayhem/internal/latency"
	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
)

type benchmarkOptions struct {
	chaos          chaosFlags
	resilience     resilienceFlags
	concurrent     int
	count          int
	duration       time.Duration
	rps            float64
	requestTimeout time.Duration
}

// benchmarkResult is the outcome of a load run.
type benchmarkResult struct {
	URL        string          `json:"url"`
	Config     chaos.Config    `json:"config"`
	Elapsed    time.Duration   `json:"elapsed"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Timeouts   int             `json:"timeouts"`
	Throughput float64         `json:"throughput"`
	Latency    latency.Summary `json:"latency"`
	Errors     map[string]int  `json:"errors"`
	Chaos      chaos.Stats     `json:"chaos"`
}

func newBenchmarkCmd() *cobra.Command {
	var opts benchmarkOptions

	cmd := &cobra.Command{
		Use:   "benchmark <url>",
		Short: "Load an endpoint concurrently with chaos injected",
		Long: `Run concurrent GET requests against an endpoint for a duration or a fixed
count, optionally paced to a request rate, and report throughput, latency
percentiles and error codes.

Examples:
  # 20 workers for 30 seconds under the staging preset
  mayhem benchmark https://api.example.com --preset staging --concurrent 20 --duration 30s

  # Exactly 500 requests at 50 req/s with retries and a circuit breaker
  mayhem benchmark https://api.example.com --fail 0.2 --count 500 --rps 50 --retry 3 --circuit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, args[0], opts)
		},
	}

	opts.chaos.register(cmd)
	opts.resilience.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&opts.concurrent, "concurrent", 10, "Number of concurrent requests")
	fs.IntVar(&opts.count, "count", 0, "Stop after this many requests (0 runs for --duration)")
	fs.DurationVar(&opts.duration, "duration", 10*time.Second, "How long to run")
	fs.Float64Var(&opts.rps, "rps", 0, "Maximum requests per second (0 is unlimited)")
	fs.DurationVar(&opts.requestTimeout, "request-timeout", 10*time.Second, "Deadline per request")
	return cmd
}

func runBenchmark(cmd *cobra.Command, url string, opts benchmarkOptions) error {
	if opts.concurrent < 1 {
		return fmt.Errorf("--concurrent must be >= 1, got %d", opts.concurrent)
	}
	if opts.count < 0 || opts.rps < 0 {
		return fmt.Errorf("--count and --rps must be >= 0")
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

	progress := rt.out
	if globals.json {
		progress = io.Discard
	}
	fmt.Fprintln(progress, output.Styles.Warning.Render(
		fmt.Sprintf("benchmarking %s with %d workers", url, opts.concurrent)))

	res := load(cmd.Context(), p.Call, url, opts)
	res.URL = url
	res.Config = cfg
	res.Chaos = rt.engine.Stats()

	err = printResult(rt.out, res, func() { renderBenchmark(rt.out, res) })
	if err != nil {
		return err
	}
	return rt.writeMetrics()
}

// load drives call from a bounded worker pool until the duration elapses,
// count requests were issued or ctx ends.
func load(ctx context.Context, call chaos.Func[string, response], url string, opts benchmarkOptions) benchmarkResult {
	limit := rate.Inf
	if opts.rps > 0 {
		limit = rate.Limit(opts.rps)
	}
	limiter := rate.NewLimiter(limit, 1)

	runCtx := ctx
	if opts.count == 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		res     = benchmarkResult{Errors: make(map[string]int)}
		samples []time.Duration
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.concurrent)

	start := time.Now()
	for issued := 0; opts.count == 0 || issued < opts.count; issued++ {
		if err := limiter.Wait(runCtx); err != nil {
			break
		}
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, opts.requestTimeout)
			defer cancel()

			begin := time.Now()
			_, err := call(reqCtx, url)
			elapsed := time.Since(begin)

			mu.Lock()
			defer mu.Unlock()
			res.Total++
			switch classify(err) {
			case outcomeSuccess:
				res.Succeeded++
				samples = append(samples, elapsed)
			case outcomeTimeout:
				res.Timeouts++
				res.Errors[errorCode(err)]++
			default:
				res.Failed++
				res.Errors[errorCode(err)]++
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Elapsed = time.Since(start)
	if secs := res.Elapsed.Seconds(); secs > 0 {
		res.Throughput = float64(res.Total) / secs
	}
	res.Latency = latency.Summarize(samples)
	return res
}

func renderBenchmark(w io.Writer, res benchmarkResult) {
	output.Title(w, "benchmark")
	fmt.Fprintln(w, output.Table(
		[]string{"requests", "success", "failed", "timeouts", "elapsed", "req/s"},
		[][]string{{
			strconv.Itoa(res.Total),
			share(res.Succeeded, res.Total),
			share(res.Failed, res.Total),
			share(res.Timeouts, res.Total),
			res.Elapsed.Round(time.Millisecond).String(),
			strconv.FormatFloat(res.Throughput, 'f', 1, 64),
		}},
	))

	output.Title(w, "latency")
	fmt.Fprintln(w, latencyTable(namedSummary{"success", res.Latency}))

	if len(res.Errors) > 0 {
		output.Title(w, "errors")
		codes := slices.Sorted(maps.Keys(res.Errors))
		rows := make([][]string, 0, len(codes))
		for _, code := range codes {
			rows = append(rows, []string{code, strconv.Itoa(res.Errors[code])})
		}
		fmt.Fprintln(w, output.Table([]string{"code", "count"}, rows))
	}
}
