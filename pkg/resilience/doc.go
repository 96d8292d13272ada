// Package resilience provides the classic patterns for surviving the
// faults the chaos package injects: circuit breaker, retry, bulkhead, rate
// limiter, cache, timeout, fallback, hedge and abort.
//
// Every pattern wraps a chaos.Func and returns one with the same
// signature. Stateful patterns (CircuitBreaker, Bulkhead, RateLimiter,
// Cache) are values that can be inspected and shared between wrappers;
// stateless ones are plain functions. Invalid configuration is rejected at
// construction with an error wrapping ErrInvalidConfig.
//
// Compose assembles several patterns in a fixed order:
//
//	p, err := resilience.Compose(fetch, resilience.Options[Req, Resp]{
//	    Retry:          &resilience.RetryConfig{Attempts: 3, Delay: chaos.Fixed(100 * time.Millisecond)},
//	    CircuitBreaker: &resilience.CircuitBreakerConfig{Threshold: 5, Cooldown: 30 * time.Second},
//	    Timeout:        &resilience.TimeoutConfig{Timeout: 2 * time.Second},
//	})
//	resp, err := p.Call(ctx, req)
//
// Sleeps, timeouts and hedging staggers run on the bound chaos.Engine, so
// a Reset of that engine releases them with fault.ErrReset.
package resilience

import (
	"errors"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// ErrInvalidConfig is wrapped by every construction error.
var ErrInvalidConfig = errors.New("invalid resilience config")

type options struct {
	engine *chaos.Engine
	name   string
}

// Option configures a pattern.
type Option func(*options)

// WithEngine binds the pattern to e for sleeps, randomness and events.
// The Default engine is used otherwise.
func WithEngine(e *chaos.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithName labels the events a pattern emits.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func resolve(opts []Option) options {
	o := options{name: chaos.DefaultTarget}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = chaos.Default()
	}
	return o
}
