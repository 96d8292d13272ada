package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	json      bool
	config    string
	seed      int64
	logLevel  string
	logFormat string
	metrics   bool
}

var globals globalFlags

// NewRootCmd builds the mayhem command tree.
func NewRootCmd() *cobra.Command {
	globals = globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mayhem",
		Short: "mayhem injects faults into HTTP endpoints and reports how they cope",
		Long: `mayhem wraps requests to an endpoint with probabilistic failures, hangs and
latency, optionally layers retries and a circuit breaker on top, and reports
success rates, latency percentiles and the chaos events behind every failure.

Configuration can be provided via flags, environment variables (MAYHEM_*) or a
YAML file passed with --config or MAYHEM_CONFIG.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&globals.json, "json", false, "Output command results in JSON format")
	pf.StringVar(&globals.config, "config", "", "Path to a mayhem YAML config file")
	pf.Int64Var(&globals.seed, "seed", 0, "Seed the chaos engine for reproducible runs")
	pf.StringVar(&globals.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&globals.logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&globals.metrics, "metrics", false, "Print Prometheus metrics after the run")

	rootCmd.AddCommand(
		newTestCmd(),
		newBenchmarkCmd(),
		newScenarioCmd(),
		newPresetsCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree. Interrupts cancel the command context.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
