package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// Backoff selects how retry delays grow with the attempt number.
type Backoff string

// Backoff strategies.
const (
	BackoffFixed       Backoff = "fixed"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// Attempts is the total number of calls, including the first.
	Attempts int `json:"attempts" yaml:"attempts"`
	// Delay is the base delay before a retry. A range draws a new value per
	// retry.
	Delay    chaos.Range   `json:"delay,omitzero" yaml:"delay,omitempty"`
	Backoff  Backoff       `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	MaxDelay time.Duration `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`

	// RetryIf decides whether err is worth another attempt. Every error is
	// retried when nil.
	RetryIf func(err error) bool `json:"-" yaml:"-"`
	// OnRetry is called with the 1-based attempt that just failed.
	OnRetry func(attempt int, err error) `json:"-" yaml:"-"`
}

// Validate reports a non-positive attempt count or an unknown backoff.
func (c RetryConfig) Validate() error {
	if c.Attempts < 1 {
		return fmt.Errorf("%w: retry attempts must be >= 1, got %d", ErrInvalidConfig, c.Attempts)
	}
	switch c.Backoff {
	case "", BackoffFixed, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("%w: unknown backoff %q", ErrInvalidConfig, c.Backoff)
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("%w: retry maxDelay must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// delay returns the wait after the given failed attempt.
func (c RetryConfig) delay(base time.Duration, attempt int) time.Duration {
	d := base
	switch c.Backoff {
	case BackoffLinear:
		d = base * time.Duration(attempt)
	case BackoffExponential:
		d = exponential(base, attempt-1)
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// exponential returns base doubled shift times, saturating at the largest
// duration instead of wrapping.
func exponential(base time.Duration, shift int) time.Duration {
	if base <= 0 {
		return base
	}
	if shift >= 63 || base > math.MaxInt64>>shift {
		return math.MaxInt64
	}
	return base << shift
}

// Retry calls op up to Attempts times. It returns the first success, the
// error RetryIf rejected, or the last error once attempts are exhausted.
// Context cancellation during a backoff sleep is returned as is.
func Retry[In, Out any](op chaos.Func[In, Out], cfg RetryConfig, opts ...Option) (chaos.Func[In, Out], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolve(opts)

	return func(ctx context.Context, in In) (Out, error) {
		reset := o.engine.Done()
		var (
			out Out
			err error
		)
		for attempt := 1; attempt <= cfg.Attempts; attempt++ {
			out, err = op(ctx, in)
			if err == nil {
				return out, nil
			}
			if cfg.RetryIf != nil && !cfg.RetryIf(err) {
				return out, err
			}
			if attempt == cfg.Attempts {
				break
			}

			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err)
			}
			o.engine.Emit(ctx, chaos.Event{Type: chaos.EventRetry, Target: o.name, Attempt: attempt, Err: err})

			d := cfg.delay(cfg.Delay.Draw(o.engine.Random()), attempt)
			if serr := chaos.SleepUntil(ctx, d, reset); serr != nil {
				var zero Out
				return zero, serr
			}
		}
		return out, err
	}, nil
}
