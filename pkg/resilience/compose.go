package resilience

import (
	"context"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// Options selects the patterns Compose applies. Nil fields are skipped.
type Options[In, Out any] struct {
	Cache          *CacheConfig[In]
	RateLimiter    *RateLimiterConfig
	Bulkhead       *BulkheadConfig
	CircuitBreaker *CircuitBreakerConfig
	Retry          *RetryConfig
	Timeout        *TimeoutConfig
	Fallback       *FallbackConfig[In, Out]
	Hedge          *HedgeConfig
	// Chaos adds fault injection as the outermost layer.
	Chaos *chaos.Config

	// Engine and Name bind every layer; the Default engine and
	// chaos.DefaultTarget are used when empty.
	Engine *chaos.Engine
	Name   string
}

// Pipeline is an operation wrapped by Compose together with its stateful
// layers.
type Pipeline[In, Out any] struct {
	fn       chaos.Func[In, Out]
	cache    *Cache[In, Out]
	limiter  *RateLimiter
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
}

// Compose wraps op, innermost first, with cache, rate limiter, bulkhead,
// circuit breaker, retry, timeout, fallback, hedge and chaos. A breaker
// rejection therefore counts as a retry attempt and a timeout bounds each
// retry loop as a whole.
func Compose[In, Out any](op chaos.Func[In, Out], o Options[In, Out]) (*Pipeline[In, Out], error) {
	var opts []Option
	if o.Engine != nil {
		opts = append(opts, WithEngine(o.Engine))
	}
	if o.Name != "" {
		opts = append(opts, WithName(o.Name))
	}

	p := &Pipeline[In, Out]{}
	fn := op
	var err error

	if o.Cache != nil {
		if p.cache, err = NewCache(fn, *o.Cache); err != nil {
			return nil, err
		}
		fn = p.cache.Call
	}
	if o.RateLimiter != nil {
		if p.limiter, err = NewRateLimiter(*o.RateLimiter); err != nil {
			return nil, err
		}
		fn = WithRateLimiter(fn, p.limiter)
	}
	if o.Bulkhead != nil {
		if p.bulkhead, err = NewBulkhead(*o.Bulkhead); err != nil {
			return nil, err
		}
		fn = WithBulkhead(fn, p.bulkhead)
	}
	if o.CircuitBreaker != nil {
		if p.breaker, err = NewCircuitBreaker(*o.CircuitBreaker, opts...); err != nil {
			return nil, err
		}
		fn = WithCircuitBreaker(fn, p.breaker)
	}
	if o.Retry != nil {
		if fn, err = Retry(fn, *o.Retry, opts...); err != nil {
			return nil, err
		}
	}
	if o.Timeout != nil {
		if fn, err = Timeout(fn, *o.Timeout, opts...); err != nil {
			return nil, err
		}
	}
	if o.Fallback != nil {
		fn = Fallback(fn, *o.Fallback)
	}
	if o.Hedge != nil {
		if fn, err = Hedge(fn, *o.Hedge, opts...); err != nil {
			return nil, err
		}
	}
	if o.Chaos != nil {
		var copts []chaos.Option
		if o.Engine != nil {
			copts = append(copts, chaos.WithEngine(o.Engine))
		}
		if o.Name != "" {
			copts = append(copts, chaos.WithTarget(o.Name))
		}
		fn = chaos.Wrap(fn, *o.Chaos, copts...)
	}

	p.fn = fn
	return p, nil
}

// Call invokes the composed operation.
func (p *Pipeline[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	return p.fn(ctx, in)
}

// Func returns the composed operation.
func (p *Pipeline[In, Out]) Func() chaos.Func[In, Out] {
	return p.fn
}

// Breaker returns the circuit breaker layer, or nil.
func (p *Pipeline[In, Out]) Breaker() *CircuitBreaker { return p.breaker }

// Bulkhead returns the bulkhead layer, or nil.
func (p *Pipeline[In, Out]) Bulkhead() *Bulkhead { return p.bulkhead }

// Limiter returns the rate limiter layer, or nil.
func (p *Pipeline[In, Out]) Limiter() *RateLimiter { return p.limiter }

// Cache returns the cache layer, or nil.
func (p *Pipeline[In, Out]) Cache() *Cache[In, Out] { return p.cache }
