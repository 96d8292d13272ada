package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/logging"
	"github.com/getmockd/mayhem/pkg/resilience"
)

// File is a decoded configuration document.
type File struct {
	Enabled bool   `yaml:"enabled"`
	Seed    *int64 `yaml:"seed,omitempty"`
	Log     bool   `yaml:"log,omitempty"`
	// Preset enables a named environment or provider preset instead of
	// Chaos.
	Preset string `yaml:"preset,omitempty"`

	Logging    Logging                 `yaml:"logging,omitempty"`
	Chaos      chaos.Config            `yaml:"chaos,omitempty"`
	Profiles   map[string]chaos.Config `yaml:"profiles,omitempty"`
	Scenarios  []chaos.Scenario        `yaml:"scenarios,omitempty"`
	Intercepts []Intercept             `yaml:"intercepts,omitempty"`
	Resilience Resilience              `yaml:"resilience,omitempty"`

	// Path is the file the document was loaded from, if any.
	Path string `yaml:"-"`
	// Sources records which keys were overridden and where from.
	Sources map[string]string `yaml:"-"`
}

// Logging selects the logger built by File.Logger.
type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Intercept is an HTTP intercept rule. Regexp takes precedence over Pattern.
type Intercept struct {
	Pattern string       `yaml:"pattern,omitempty"`
	Regexp  string       `yaml:"regexp,omitempty"`
	Config  chaos.Config `yaml:"config"`

	re *regexp.Regexp
}

// Resilience holds the pattern settings used to build a pipeline. Nil
// sections are left out of the pipeline.
type Resilience struct {
	Retry          *Retry                           `yaml:"retry,omitempty"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuitBreaker,omitempty"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead,omitempty"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rateLimiter,omitempty"`
	Cache          *Cache                           `yaml:"cache,omitempty"`
	Timeout        time.Duration                    `yaml:"timeout,omitempty"`
	Hedge          *resilience.HedgeConfig          `yaml:"hedge,omitempty"`
}

// Retry extends resilience.RetryConfig with a retryIf expression.
type Retry struct {
	resilience.RetryConfig `yaml:",inline"`

	RetryIf string `yaml:"retryIf,omitempty"`

	cond *Condition
}

// Cache configures result caching.
type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

func (f *File) compile() error {
	for i := range f.Intercepts {
		ic := &f.Intercepts[i]
		if ic.Regexp == "" {
			continue
		}
		re, err := regexp.Compile(ic.Regexp)
		if err != nil {
			return fmt.Errorf("%w: intercepts[%d]: %w", ErrInvalidConfig, i, err)
		}
		ic.re = re
	}
	if r := f.Resilience.Retry; r != nil && r.RetryIf != "" {
		cond, err := CompileCondition(r.RetryIf)
		if err != nil {
			return fmt.Errorf("%w: resilience.retry.retryIf: %w", ErrInvalidConfig, err)
		}
		r.cond = cond
	}
	return nil
}

// Validate checks every chaos config and resilience section.
func (f *File) Validate() error {
	var errs []error
	add := func(where string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	add("chaos", f.Chaos.Validate())
	for name, cfg := range f.Profiles {
		if name == "" {
			add("profiles", errors.New("profile name is required"))
		}
		add("profiles."+name, cfg.Validate())
	}
	for i, s := range f.Scenarios {
		where := fmt.Sprintf("scenarios[%d]", i)
		if s.Name == "" {
			add(where, errors.New("scenario name is required"))
		}
		if s.Duration < 0 {
			add(where, fmt.Errorf("duration must be >= 0, got %s", s.Duration))
		}
		add(where, s.Config.Validate())
	}
	for i, ic := range f.Intercepts {
		where := fmt.Sprintf("intercepts[%d]", i)
		if ic.Pattern == "" && ic.Regexp == "" {
			add(where, errors.New("pattern or regexp is required"))
		}
		add(where, ic.Config.Validate())
	}
	if f.Preset != "" {
		_, env := chaos.GetPreset(f.Preset)
		_, provider := chaos.GetProviderPreset(f.Preset)
		if !env && !provider {
			add("preset", fmt.Errorf("%w: %q", chaos.ErrPresetNotFound, f.Preset))
		}
	}

	r := f.Resilience
	if r.Retry != nil {
		add("resilience.retry", r.Retry.RetryConfig.Validate())
	}
	if r.CircuitBreaker != nil {
		add("resilience.circuitBreaker", r.CircuitBreaker.Validate())
	}
	if r.Bulkhead != nil {
		add("resilience.bulkhead", r.Bulkhead.Validate())
	}
	if r.RateLimiter != nil {
		add("resilience.rateLimiter", r.RateLimiter.Validate())
	}
	if r.Cache != nil && r.Cache.TTL <= 0 {
		add("resilience.cache", fmt.Errorf("ttl must be > 0, got %s", r.Cache.TTL))
	}
	if r.Timeout < 0 {
		add("resilience.timeout", fmt.Errorf("must be >= 0, got %s", r.Timeout))
	}
	if r.Hedge != nil {
		add("resilience.hedge", r.Hedge.Validate())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Settings returns the engine settings carried by the file.
func (f *File) Settings() chaos.Settings {
	return chaos.Settings{Enabled: f.Enabled, Seed: f.Seed, Log: f.Log}
}

// Apply configures e: settings first, then profiles, scenarios and
// intercepts. When enabled, the preset is activated if named, otherwise
// the chaos section.
func (f *File) Apply(e *chaos.Engine) error {
	e.Configure(f.Settings())

	for name, cfg := range f.Profiles {
		e.Profile(name, cfg)
	}
	for _, s := range f.Scenarios {
		e.Scenario(s)
	}
	for _, ic := range f.Intercepts {
		if ic.re != nil {
			e.InterceptRegexp(ic.re, ic.Config)
		} else {
			e.Intercept(ic.Pattern, ic.Config)
		}
	}

	if !f.Enabled {
		return nil
	}
	if f.Preset != "" {
		return e.UsePreset(f.Preset)
	}
	e.Enable(f.Chaos)
	return nil
}

// LoggingConfig returns the logging configuration described by the file.
func (f *File) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if f.Logging.Level != "" {
		cfg.Level = logging.ParseLevel(f.Logging.Level)
	}
	if f.Logging.Format != "" {
		cfg.Format = logging.ParseFormat(f.Logging.Format)
	}
	return cfg
}

// Logger builds a logger from the logging section.
func (f *File) Logger() *slog.Logger {
	return logging.New(f.LoggingConfig())
}

// RetryConfig returns the retry section with its retryIf condition bound.
// ok is false when the file has no retry section.
func (f *File) RetryConfig() (cfg resilience.RetryConfig, ok bool) {
	r := f.Resilience.Retry
	if r == nil {
		return resilience.RetryConfig{}, false
	}
	cfg = r.RetryConfig
	if r.cond != nil {
		cfg.RetryIf = r.cond.Match
	}
	return cfg, true
}

// PipelineOptions converts the resilience section into Compose options.
// Fallback and chaos layers are left for the caller.
func PipelineOptions[In, Out any](f *File) resilience.Options[In, Out] {
	var o resilience.Options[In, Out]
	r := f.Resilience

	if cfg, ok := f.RetryConfig(); ok {
		o.Retry = &cfg
	}
	if r.CircuitBreaker != nil {
		cb := *r.CircuitBreaker
		o.CircuitBreaker = &cb
	}
	if r.Bulkhead != nil {
		b := *r.Bulkhead
		o.Bulkhead = &b
	}
	if r.RateLimiter != nil {
		rl := *r.RateLimiter
		o.RateLimiter = &rl
	}
	if r.Cache != nil {
		o.Cache = &resilience.CacheConfig[In]{TTL: r.Cache.TTL}
	}
	if r.Timeout > 0 {
		o.Timeout = &resilience.TimeoutConfig{Timeout: r.Timeout}
	}
	if r.Hedge != nil {
		h := *r.Hedge
		o.Hedge = &h
	}
	return o
}
