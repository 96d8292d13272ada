package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// HedgeConfig configures Hedge.
type HedgeConfig struct {
	// Count is the maximum number of concurrent attempts.
	Count int `json:"count" yaml:"count"`
	// Delay staggers the launches. Zero launches every attempt at once.
	Delay time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Validate reports a non-positive count or a negative delay.
func (c HedgeConfig) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("%w: hedge count must be >= 1, got %d", ErrInvalidConfig, c.Count)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: hedge delay must be >= 0, got %s", ErrInvalidConfig, c.Delay)
	}
	return nil
}

// Hedge launches up to Count attempts of op, Delay apart, and returns the
// first success. Pending launches are skipped once an attempt succeeds and
// the context passed to the losers is cancelled. When every attempt fails
// the first attempt's error is returned.
func Hedge[In, Out any](op chaos.Func[In, Out], cfg HedgeConfig, opts ...Option) (chaos.Func[In, Out], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolve(opts)

	type result struct {
		attempt int
		out     Out
		err     error
	}

	return func(ctx context.Context, in In) (Out, error) {
		reset := o.engine.Done()
		hctx, cancel := context.WithCancel(ctx)
		defer cancel()

		results := make(chan result, cfg.Count)
		launch := func(attempt int) {
			go func() {
				out, err := op(hctx, in)
				results <- result{attempt, out, err}
			}()
		}

		errs := make([]error, cfg.Count)
		launched, received := 1, 0
		launch(0)
		if cfg.Delay == 0 {
			for ; launched < cfg.Count; launched++ {
				launch(launched)
			}
		}

		ticker := time.NewTicker(max(cfg.Delay, time.Millisecond))
		defer ticker.Stop()

		var zero Out
		for {
			var tick <-chan time.Time
			if launched < cfg.Count {
				tick = ticker.C
			}
			select {
			case r := <-results:
				if r.err == nil {
					return r.out, nil
				}
				errs[r.attempt] = r.err
				received++
				if received == cfg.Count {
					if errs[0] != nil {
						return zero, errs[0]
					}
					return zero, fault.HedgeFailed()
				}
			case <-tick:
				launch(launched)
				launched++
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-reset:
				return zero, fault.Reset()
			}
		}
	}, nil
}
