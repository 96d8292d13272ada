package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// TimeoutConfig configures Timeout.
type TimeoutConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	OnTimeout func() `json:"-" yaml:"-"`
}

// Timeout races op against a timer. When the timer wins a TIMEOUT fault is
// returned; op keeps running with the caller's context and its result is
// discarded.
func Timeout[In, Out any](op chaos.Func[In, Out], cfg TimeoutConfig, opts ...Option) (chaos.Func[In, Out], error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0, got %s", ErrInvalidConfig, cfg.Timeout)
	}
	o := resolve(opts)

	type result struct {
		out Out
		err error
	}

	return func(ctx context.Context, in In) (Out, error) {
		reset := o.engine.Done()
		done := make(chan result, 1)
		go func() {
			out, err := op(ctx, in)
			done <- result{out, err}
		}()

		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()

		var zero Out
		select {
		case r := <-done:
			return r.out, r.err
		case <-timer.C:
			if cfg.OnTimeout != nil {
				cfg.OnTimeout()
			}
			return zero, fault.Timeout(cfg.Timeout)
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-reset:
			return zero, fault.Reset()
		}
	}, nil
}
