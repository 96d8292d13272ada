package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/config"
	"github.com/getmockd/mayhem/pkg/logging"
	"github.com/getmockd/mayhem/pkg/metrics"
	"github.com/getmockd/mayhem/pkg/resilience"
)

// cmdEnv is the state a command runs against: the loaded config and the
// engine it was applied to.
type cmdEnv struct {
	file      *config.File
	engine    *chaos.Engine
	logger    *slog.Logger
	collector *metrics.Collector
	out       io.Writer
}

// newCmdEnv loads the config file, applies MAYHEM_* variables and the
// persistent flags, and builds an engine from the result.
func newCmdEnv(cmd *cobra.Command) (*cmdEnv, error) {
	file := &config.File{}
	path := globals.config
	if path == "" {
		path = config.PathFromEnv()
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	file.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("seed") {
		seed := globals.seed
		file.Seed = &seed
	}
	if flags.Changed("log-level") {
		file.Logging.Level = globals.logLevel
	}
	if flags.Changed("log-format") {
		file.Logging.Format = globals.logFormat
	}

	logCfg := file.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)

	opts := []chaos.EngineOption{chaos.WithLogger(logger)}
	var collector *metrics.Collector
	if globals.metrics {
		c, err := metrics.NewCollector(nil)
		if err != nil {
			return nil, err
		}
		collector = c
		opts = append(opts, chaos.WithObserver(collector))
	}

	engine := chaos.NewEngine(opts...)
	if err := file.Apply(engine); err != nil {
		return nil, err
	}
	if file.Path != "" {
		logger.Debug("config loaded", "path", file.Path, "enabled", file.Enabled)
	}

	return &cmdEnv{
		file:      file,
		engine:    engine,
		logger:    logger,
		collector: collector,
		out:       cmd.OutOrStdout(),
	}, nil
}

// client returns an HTTP client whose transport applies the engine's
// intercept rules. Requests are bounded by their context.
func (rt *cmdEnv) client() *http.Client {
	return &http.Client{Transport: chaos.NewTransport(rt.engine, nil)}
}

// pipeline wraps fetch with chaos and the resilience layers from the config
// file, overridden by --retry and --circuit.
func (rt *cmdEnv) pipeline(fetch chaos.Func[string, response], cfg chaos.Config, rf resilienceFlags, target string) (*resilience.Pipeline[string, response], error) {
	op := chaos.Wrap(fetch, cfg, chaos.WithEngine(rt.engine), chaos.WithTarget(target))

	o := config.PipelineOptions[string, response](rt.file)
	o.Engine = rt.engine
	o.Name = target
	if rf.retry > 0 {
		o.Retry = &resilience.RetryConfig{
			Attempts: rf.retry,
			Delay:    chaos.Fixed(rf.retryDelay),
			Backoff:  resilience.BackoffExponential,
			MaxDelay: 5 * time.Second,
		}
	}
	if rf.circuit > 0 {
		o.CircuitBreaker = &resilience.CircuitBreakerConfig{
			Threshold: rf.circuit,
			Cooldown:  rf.cooldown,
		}
	}

	p, err := resilience.Compose(op, o)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	if rt.collector != nil && p.Breaker() != nil {
		rt.collector.ObserveBreaker(target, p.Breaker())
	}
	return p, nil
}

// writeMetrics dumps the collected metrics when --metrics is set.
func (rt *cmdEnv) writeMetrics() error {
	if rt.collector == nil || globals.json {
		return nil
	}
	fmt.Fprintln(rt.out)
	return rt.collector.WriteText(rt.out)
}
