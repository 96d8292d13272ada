package resilience

import (
	"context"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// Abort makes op cancellable through signal. A call made after signal is
// closed fails immediately with an ABORTED fault without invoking op; a
// call in flight when it closes returns ABORTED while op keeps running.
// Any <-chan struct{} works as a signal, including ctx.Done().
func Abort[In, Out any](op chaos.Func[In, Out], signal <-chan struct{}) chaos.Func[In, Out] {
	type result struct {
		out Out
		err error
	}

	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		select {
		case <-signal:
			return zero, fault.Aborted()
		default:
		}

		done := make(chan result, 1)
		go func() {
			out, err := op(ctx, in)
			done <- result{out, err}
		}()

		select {
		case r := <-done:
			return r.out, r.err
		case <-signal:
			return zero, fault.Aborted()
		}
	}
}
