package chaos

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/logging"
	"github.com/getmockd/mayhem/pkg/random"
)

// Lookup errors.
var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrScenarioNotFound = errors.New("scenario not found")
)

// Settings are engine-wide switches applied with Configure.
type Settings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Seed    *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Log     bool   `json:"log,omitempty" yaml:"log,omitempty"` // log every chaos event at info
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver attaches an observer that receives every event and call.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithSeed starts the engine in deterministic mode.
func WithSeed(n int64) EngineOption {
	return func(e *Engine) {
		e.rng.Seed(n)
	}
}

// Engine holds the chaos state shared by every operation wrapped against
// it: the enable flag, the active config, named profiles and scenarios,
// HTTP intercept rules, listeners and statistics.
//
// Wrapped operations consult the engine on every call, so enabling,
// scoping or resetting takes effect immediately.
type Engine struct {
	mu             sync.RWMutex
	enabled        bool
	active         Config
	settings       Settings
	profiles       map[string]Config
	scenarios      map[string]Scenario
	activeScenario string
	intercepts     []InterceptRule
	listeners      map[uint64]func(Event)
	nextListener   uint64
	observers      []Observer
	done           chan struct{}

	origTransport http.RoundTripper
	patched       bool

	rng    *random.Source
	stats  *recorder
	logger *slog.Logger
}

// NewEngine creates a disabled engine with the builtin scenarios
// registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		profiles:  make(map[string]Config),
		scenarios: make(map[string]Scenario),
		listeners: make(map[uint64]func(Event)),
		done:      make(chan struct{}),
		rng:       random.New(),
		stats:     newRecorder(),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.LoadBuiltinScenarios()
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine { return NewEngine() })

// Default returns the process-wide engine used when no engine is given.
func Default() *Engine {
	return defaultEngine()
}

// AddObserver attaches o to a running engine, such as Default.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// SetLogger replaces the engine logger. A nil logger disables logging.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = logging.Nop()
	}
	e.mu.Lock()
	e.logger = l
	e.mu.Unlock()
}

// Random exposes the engine's probability source.
func (e *Engine) Random() *random.Source {
	return e.rng
}

// Enable turns chaos on with cfg as the active global config.
func (e *Engine) Enable(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	e.active = cfg.Clone()
}

// Disable turns chaos off and clears the active config.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.active = Config{}
}

// Toggle flips the enable flag and returns the new value.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = !e.enabled
	return e.enabled
}

// IsEnabled reports whether the global config is applied.
func (e *Engine) IsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Active returns a copy of the active global config.
func (e *Engine) Active() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.Clone()
}

// Effective returns cfg merged over the active config when the engine
// is enabled, or cfg alone otherwise.
func (e *Engine) Effective(cfg Config) Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.enabled {
		return cfg
	}
	return Merge(e.active, cfg)
}

// Configure applies engine settings. A non-nil Seed switches the engine to
// deterministic mode.
func (e *Engine) Configure(s Settings) {
	e.mu.Lock()
	e.settings = s
	e.enabled = s.Enabled
	e.mu.Unlock()

	if s.Seed != nil {
		e.rng.Seed(*s.Seed)
	}
}

// Settings returns the last applied settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Seed switches the engine to the deterministic sequence from n.
func (e *Engine) Seed(n int64) {
	e.rng.Seed(n)
}

// Scope enables cfg for the duration of fn and restores the previous
// enable flag and config on every exit path, panics included.
func (e *Engine) Scope(cfg Config, fn func() error) error {
	e.mu.Lock()
	prevEnabled, prevActive := e.enabled, e.active
	e.enabled, e.active = true, cfg.Clone()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.enabled, e.active = prevEnabled, prevActive
		e.mu.Unlock()
	}()

	return fn()
}

// Scoped is Scope for functions that produce a value.
func Scoped[T any](e *Engine, cfg Config, fn func() (T, error)) (T, error) {
	var out T
	err := e.Scope(cfg, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// Profile registers a named config.
func (e *Engine) Profile(name string, cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles[name] = cfg.Clone()
}

// UseProfile enables a registered profile.
func (e *Engine) UseProfile(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok := e.profiles[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	e.enabled = true
	e.active = cfg.Clone()
	return nil
}

// Profiles returns the registered profile names, sorted.
func (e *Engine) Profiles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.profiles))
	for name := range e.profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Scenario registers a named, time-bounded config.
func (e *Engine) Scenario(s Scenario) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s.Config = s.Config.Clone()
	e.scenarios[s.Name] = s
}

// Scenarios returns the registered scenarios sorted by name.
func (e *Engine) Scenarios() []Scenario {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Scenario, 0, len(e.scenarios))
	for _, s := range e.scenarios {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Scenario) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// LoadBuiltinScenarios registers the builtin scenarios, replacing any
// registered scenario of the same name.
func (e *Engine) LoadBuiltinScenarios() {
	for _, s := range BuiltinScenarios() {
		e.Scenario(s)
	}
}

// Play activates a scenario. When the scenario has a duration Play blocks
// for it and then stops the scenario. It returns the context error if ctx
// ends first (stopping the scenario) and fault.ErrReset if the engine is
// reset meanwhile.
func (e *Engine) Play(ctx context.Context, name string) error {
	e.mu.Lock()
	s, ok := e.scenarios[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	e.activeScenario = name
	e.enabled = true
	if !s.Config.IsZero() {
		e.active = s.Config.Clone()
	}
	logger, reset := e.logger, e.done
	e.mu.Unlock()

	logger.Debug("scenario started", "scenario", name, "duration", s.Duration)

	if s.Duration <= 0 {
		return nil
	}

	err := sleepUntil(ctx, s.Duration, reset)
	if errors.Is(err, fault.ErrReset) {
		return err
	}
	e.stopIfActive(name)
	logger.Debug("scenario stopped", "scenario", name)
	return err
}

func (e *Engine) stopIfActive(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeScenario != name {
		return
	}
	e.activeScenario = ""
	e.enabled = false
	e.active = Config{}
}

// Stop deactivates the running scenario and disables chaos.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeScenario = ""
	e.enabled = false
	e.active = Config{}
}

// ActiveScenario returns the playing scenario name, or "".
func (e *Engine) ActiveScenario() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeScenario
}

// On registers a listener for every event and returns a function that
// removes it.
func (e *Engine) On(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// RemoveAllListeners drops every listener registered with On.
func (e *Engine) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[uint64]func(Event))
}

// Emit delivers ev to listeners and observers and counts chaos events in
// the engine statistics.
func (e *Engine) Emit(ctx context.Context, ev Event) {
	e.mu.RLock()
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, e.listeners[id])
	}
	observers := slices.Clone(e.observers)
	logEvents := e.settings.Log
	logger := e.logger
	e.mu.RUnlock()

	if ev.IsChaos() {
		e.stats.recordEvent(ev)
		if logEvents {
			logger.Info("chaos event",
				"event", string(ev.Type),
				"target", ev.Target,
				"delay_ms", ev.Delay.Milliseconds(),
			)
		}
	}

	for _, fn := range listeners {
		fn(ev)
	}
	for _, o := range observers {
		o.ObserveEvent(ctx, ev)
	}
}

// Fire emits ev to the config's OnEvent callback and then to the engine.
func (e *Engine) Fire(ctx context.Context, cfg Config, ev Event) {
	if cfg.OnEvent != nil {
		cfg.OnEvent(ev)
	}
	e.Emit(ctx, ev)
}

// RecordCall counts a call outcome. A negative duration records the call
// without a latency sample.
func (e *Engine) RecordCall(ctx context.Context, target string, d time.Duration, err error) {
	e.stats.recordCall(target, err != nil, d)

	ev := Event{Type: EventSuccess, Target: target, Duration: max(d, 0)}
	if err != nil {
		ev.Type = EventFailure
		ev.Err = err
	}
	e.Emit(ctx, ev)

	e.mu.RLock()
	observers := slices.Clone(e.observers)
	e.mu.RUnlock()
	for _, o := range observers {
		o.ObserveCall(ctx, Call{Target: target, Duration: d, Err: err})
	}
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// ResetStats zeroes the counters.
func (e *Engine) ResetStats() {
	e.stats.reset()
}

// Done returns a channel closed by the next Reset.
func (e *Engine) Done() <-chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.done
}

// Sleep waits for d. It returns the context error if ctx ends first and
// fault.ErrReset if the engine is reset first.
func (e *Engine) Sleep(ctx context.Context, d time.Duration) error {
	return sleepUntil(ctx, d, e.Done())
}

// Hang blocks until ctx ends or the engine is reset. It never returns
// nil.
func (e *Engine) Hang(ctx context.Context) error {
	return hangUntil(ctx, e.Done())
}

// SleepUntil waits for d unless ctx ends or reset is closed first. Pass a
// channel captured from Done to survive a Reset racing the call.
func SleepUntil(ctx context.Context, d time.Duration, reset <-chan struct{}) error {
	return sleepUntil(ctx, d, reset)
}

func sleepUntil(ctx context.Context, d time.Duration, reset <-chan struct{}) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reset:
		return fault.Reset()
	case <-timer.C:
		return nil
	}
}

func hangUntil(ctx context.Context, reset <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reset:
		return fault.Reset()
	}
}

// Reset returns the engine to its initial cleared state: disabled, no
// active config, no profiles, scenarios, intercepts or listeners, zero
// statistics and a non-deterministic random source. Pending sleeps and
// hangs return fault.ErrReset and a patched http.DefaultTransport is
// restored. Observers stay attached.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.enabled = false
	e.active = Config{}
	e.settings = Settings{}
	e.profiles = make(map[string]Config)
	e.scenarios = make(map[string]Scenario)
	e.activeScenario = ""
	e.intercepts = nil
	e.listeners = make(map[uint64]func(Event))
	close(e.done)
	e.done = make(chan struct{})
	e.unpatchLocked()
	logger := e.logger
	e.mu.Unlock()

	e.stats.reset()
	e.rng.Reset()
	logger.Debug("chaos state reset")
}
