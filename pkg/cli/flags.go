package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// chaosFlags are the fault knobs shared by test, benchmark and scenario.
type chaosFlags struct {
	fail    float64
	timeout float64
	delay   string
	preset  string
}

func (f *chaosFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.fail, "fail", 0, "Failure rate (0-1)")
	fs.Float64Var(&f.timeout, "timeout", 0, "Hang rate (0-1); hung requests end at --request-timeout")
	fs.StringVar(&f.delay, "delay", "", `Delay per request: "200", "100-500" (ms) or "100ms-1s"`)
	fs.StringVar(&f.preset, "preset", "", "Use a named preset instead of --fail/--delay/--timeout")
}

// config returns the preset when one is named, otherwise the knobs.
func (f *chaosFlags) config() (chaos.Config, error) {
	if f.preset != "" {
		return presetConfig(f.preset)
	}
	delay, err := parseDelay(f.delay)
	if err != nil {
		return chaos.Config{}, err
	}
	cfg := chaos.Config{Fail: f.fail, Timeout: f.timeout, Delay: delay}
	if err := cfg.Validate(); err != nil {
		return chaos.Config{}, err
	}
	return cfg, nil
}

func presetConfig(name string) (chaos.Config, error) {
	if p, ok := chaos.GetPreset(name); ok {
		return p.Config, nil
	}
	if p, ok := chaos.GetProviderPreset(name); ok {
		return p.Config, nil
	}
	return chaos.Config{}, fmt.Errorf("%w: %q (run 'mayhem presets' to list them)", chaos.ErrPresetNotFound, name)
}

// parseDelay accepts bare milliseconds as well as Go durations.
func parseDelay(s string) (chaos.Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return chaos.Range{}, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	s = withMillis(lo)
	if isRange {
		s += "-" + withMillis(hi)
	}
	r, err := chaos.ParseRange(s)
	if err != nil {
		return chaos.Range{}, fmt.Errorf("invalid --delay: %w", err)
	}
	return r, nil
}

func withMillis(s string) string {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s + "ms"
	}
	return s
}

// resilienceFlags layer retries and a circuit breaker over the chaos.
type resilienceFlags struct {
	retry      int
	retryDelay time.Duration
	circuit    int
	cooldown   time.Duration
}

func (f *resilienceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.retry, "retry", 0, "Total attempts per request, including the first (0 disables retries)")
	fs.DurationVar(&f.retryDelay, "retry-delay", 100*time.Millisecond, "Base delay between retries (exponential backoff)")
	fs.IntVar(&f.circuit, "circuit", 0, "Open a circuit breaker after this many consecutive failures (0 disables it)")
	fs.DurationVar(&f.cooldown, "cooldown", 5*time.Second, "Circuit breaker cooldown")
}
