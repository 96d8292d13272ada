package resilience

import (
	"context"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// FallbackConfig configures Fallback. Func, when set, takes precedence
// over Value.
type FallbackConfig[In, Out any] struct {
	Value Out
	Func  func(ctx context.Context, in In, err error) (Out, error)

	OnFallback func(err error)
}

// Fallback replaces any failure of op with the configured value or the
// result of the fallback function.
func Fallback[In, Out any](op chaos.Func[In, Out], cfg FallbackConfig[In, Out]) chaos.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		out, err := op(ctx, in)
		if err == nil {
			return out, nil
		}
		if cfg.OnFallback != nil {
			cfg.OnFallback(err)
		}
		if cfg.Func != nil {
			return cfg.Func(ctx, in, err)
		}
		return cfg.Value, nil
	}
}
