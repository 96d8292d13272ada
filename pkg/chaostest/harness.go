package chaostest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// Harness is a chaos engine scoped to a single test.
type Harness struct {
	t      testing.TB
	engine *chaos.Engine

	mu     sync.Mutex
	events []chaos.Event
}

// Option configures a Harness.
type Option func(*options)

type options struct {
	seed    *int64
	engine  []chaos.EngineOption
	builtin bool
}

// WithSeed makes the harness engine deterministic.
func WithSeed(n int64) Option {
	return func(o *options) { o.seed = &n }
}

// WithEngineOptions passes options through to chaos.NewEngine.
func WithEngineOptions(opts ...chaos.EngineOption) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// WithBuiltinScenarios registers the builtin scenarios on the engine.
func WithBuiltinScenarios() Option {
	return func(o *options) { o.builtin = true }
}

// New creates a harness. The engine is reset when the test completes.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	engineOpts := o.engine
	if o.seed != nil {
		engineOpts = append(engineOpts, chaos.WithSeed(*o.seed))
	}

	h := &Harness{t: t, engine: chaos.NewEngine(engineOpts...)}
	if o.builtin {
		h.engine.LoadBuiltinScenarios()
	}
	h.listen()
	t.Cleanup(h.engine.Reset)
	return h
}

func (h *Harness) listen() {
	h.engine.On(func(ev chaos.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})
}

// Engine returns the harness engine.
func (h *Harness) Engine() *chaos.Engine {
	return h.engine
}

// Enable enables cfg on the harness engine.
func (h *Harness) Enable(cfg chaos.Config) {
	h.engine.Enable(cfg)
}

// Intercept adds an HTTP intercept rule.
func (h *Harness) Intercept(pattern string, cfg chaos.Config) {
	h.engine.Intercept(pattern, cfg)
}

// Reset resets the engine and clears recorded events. Recording continues
// afterwards.
func (h *Harness) Reset() {
	h.engine.Reset()
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
	h.listen()
}

// Server starts an httptest server for handler and returns its URL. The
// server is closed when the test completes.
func (h *Harness) Server(handler http.Handler) string {
	h.t.Helper()
	srv := httptest.NewServer(handler)
	h.t.Cleanup(srv.Close)
	return srv.URL
}

// Client returns an http.Client that applies the engine's intercept rules.
func (h *Harness) Client() *http.Client {
	return &http.Client{Transport: chaos.NewTransport(h.engine, nil)}
}

// Events returns the recorded events in emission order.
func (h *Harness) Events() []chaos.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]chaos.Event, len(h.events))
	copy(out, h.events)
	return out
}

// Count returns how many events of type typ were recorded.
func (h *Harness) Count(typ chaos.EventType) int {
	n := 0
	for _, ev := range h.Events() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// AssertEvent asserts that at least one event of type typ was recorded.
func (h *Harness) AssertEvent(t testing.TB, typ chaos.EventType) {
	t.Helper()

	if h.Count(typ) == 0 {
		t.Errorf("expected a %s event, got %s", typ, h.describe())
	}
}

// AssertEventCount asserts that exactly n events of type typ were recorded.
func (h *Harness) AssertEventCount(t testing.TB, typ chaos.EventType, n int) {
	t.Helper()

	if got := h.Count(typ); got != n {
		t.Errorf("expected %d %s events, got %d", n, typ, got)
	}
}

// AssertNoChaos asserts that no injected fault or delay was recorded.
func (h *Harness) AssertNoChaos(t testing.TB) {
	t.Helper()

	for _, ev := range h.Events() {
		if ev.IsChaos() {
			t.Errorf("expected no chaos events, got %s", h.describe())
			return
		}
	}
}

func (h *Harness) describe() string {
	events := h.Events()
	if len(events) == 0 {
		return "none"
	}
	s := ""
	for i, ev := range events {
		if i > 0 {
			s += ", "
		}
		s += string(ev.Type)
	}
	return s
}
