package resilience

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state: calls pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen is the tripped state: calls fail fast.
	CircuitOpen
	// CircuitHalfOpen admits a single probe call after the cooldown.
	CircuitHalfOpen
)

// String returns the human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int `json:"threshold" yaml:"threshold"`
	// Cooldown is how long the circuit stays open after the last failure.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	OnOpen     func() `json:"-" yaml:"-"`
	OnClose    func() `json:"-" yaml:"-"`
	OnHalfOpen func() `json:"-" yaml:"-"`
}

// Validate reports a non-positive threshold or cooldown.
func (c CircuitBreakerConfig) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("%w: circuit breaker threshold must be > 0, got %d", ErrInvalidConfig, c.Threshold)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("%w: circuit breaker cooldown must be > 0, got %s", ErrInvalidConfig, c.Cooldown)
	}
	return nil
}

// CircuitSnapshot is the inspectable breaker state.
type CircuitSnapshot struct {
	State       CircuitState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure time.Time    `json:"lastFailure,omitzero"`
}

// CircuitBreakerStats contains statistics for a circuit breaker.
type CircuitBreakerStats struct {
	State         string `json:"state"`
	Failures      int    `json:"failures"`
	TotalTrips    int64  `json:"totalTrips"`
	TotalRejected int64  `json:"totalRejected"`
	TotalPassed   int64  `json:"totalPassed"`
	StateChanges  int64  `json:"stateChanges"`
}

// CircuitBreaker is the closed, open and half-open state machine guarding
// one operation.
//
// States:
//   - CLOSED: calls pass through. Each failure increments the failure count
//     and a success resets it. Reaching Threshold opens the circuit.
//   - OPEN: calls fail with a CIRCUIT_OPEN fault without invoking the
//     operation. Once Cooldown has elapsed since the last failure the next
//     call moves the circuit to HALF_OPEN.
//   - HALF_OPEN: exactly one probe call is attempted while others fail
//     fast. A successful probe closes the circuit, a failed one reopens it
//     and restarts the cooldown.
type CircuitBreaker struct {
	mu     sync.Mutex
	config CircuitBreakerConfig
	opts   options
	now    func() time.Time

	state       CircuitState
	failures    int
	lastFailure time.Time
	probing     bool
	listeners   []func(CircuitState)

	totalTrips    int64
	totalRejected int64
	totalPassed   int64
	stateChanges  int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig, opts ...Option) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CircuitBreaker{
		config: cfg,
		opts:   resolve(opts),
		now:    time.Now,
		state:  CircuitClosed,
	}, nil
}

// OnStateChange registers fn to be called after every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listeners = append(cb.listeners, fn)
}

// transition holds the side effects of a state change, run after the lock
// is released.
type transition struct {
	to       CircuitState
	callback func()
}

// allow admits a call. probe is true for the half-open probe.
func (cb *CircuitBreaker) allow() (probe bool, t *transition, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailure) >= cb.config.Cooldown {
		t = cb.setState(CircuitHalfOpen)
	}

	switch cb.state {
	case CircuitOpen:
		cb.totalRejected++
		return false, t, fault.CircuitOpen()
	case CircuitHalfOpen:
		if cb.probing {
			cb.totalRejected++
			return false, t, fault.CircuitOpen()
		}
		cb.probing = true
		return true, t, nil
	}
	return false, t, nil
}

// record feeds a call outcome into the state machine.
func (cb *CircuitBreaker) record(probe bool, err error) *transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
	}

	if err == nil {
		cb.totalPassed++
		cb.failures = 0
		if probe && cb.state == CircuitHalfOpen {
			return cb.setState(CircuitClosed)
		}
		return nil
	}

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == CircuitHalfOpen || (cb.state == CircuitClosed && cb.failures >= cb.config.Threshold) {
		cb.totalTrips++
		return cb.setState(CircuitOpen)
	}
	return nil
}

// setState changes the state. Caller must hold cb.mu.
func (cb *CircuitBreaker) setState(s CircuitState) *transition {
	if cb.state == s {
		return nil
	}
	cb.state = s
	cb.stateChanges++
	t := &transition{to: s}
	switch s {
	case CircuitOpen:
		t.callback = cb.config.OnOpen
	case CircuitClosed:
		cb.failures = 0
		t.callback = cb.config.OnClose
	case CircuitHalfOpen:
		t.callback = cb.config.OnHalfOpen
	}
	return t
}

func (cb *CircuitBreaker) notify(ctx context.Context, t *transition) {
	if t == nil {
		return
	}
	if t.callback != nil {
		t.callback()
	}
	switch t.to {
	case CircuitOpen:
		cb.opts.engine.Emit(ctx, chaos.Event{Type: chaos.EventCircuitOpen, Target: cb.opts.name})
	case CircuitClosed:
		cb.opts.engine.Emit(ctx, chaos.Event{Type: chaos.EventCircuitClose, Target: cb.opts.name})
	}

	cb.mu.Lock()
	listeners := slices.Clone(cb.listeners)
	cb.mu.Unlock()
	for _, fn := range listeners {
		fn(t.to)
	}
}

// State returns the current circuit state. An open circuit whose cooldown
// has elapsed still reports open until the next call.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a copy of the breaker state.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitSnapshot{State: cb.state, Failures: cb.failures, LastFailure: cb.lastFailure}
}

// Reset forces the circuit breaker to the CLOSED state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	t := cb.setState(CircuitClosed)
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.probing = false
	cb.mu.Unlock()
	cb.notify(context.Background(), t)
}

// Trip forces the circuit breaker to the OPEN state.
func (cb *CircuitBreaker) Trip() {
	cb.mu.Lock()
	cb.lastFailure = cb.now()
	cb.totalTrips++
	t := cb.setState(CircuitOpen)
	cb.mu.Unlock()
	cb.notify(context.Background(), t)
}

// Stats returns current statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:         cb.state.String(),
		Failures:      cb.failures,
		TotalTrips:    cb.totalTrips,
		TotalRejected: cb.totalRejected,
		TotalPassed:   cb.totalPassed,
		StateChanges:  cb.stateChanges,
	}
}

// WithCircuitBreaker guards op with cb. Several operations may share one
// breaker.
func WithCircuitBreaker[In, Out any](op chaos.Func[In, Out], cb *CircuitBreaker) chaos.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		probe, t, err := cb.allow()
		cb.notify(ctx, t)
		if err != nil {
			var zero Out
			return zero, err
		}

		out, err := op(ctx, in)
		cb.notify(ctx, cb.record(probe, err))
		return out, err
	}
}
