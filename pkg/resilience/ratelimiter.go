package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/ratelimit"
)

// RateLimiterConfig configures a RateLimiter: Requests calls per Interval.
type RateLimiterConfig struct {
	Requests int           `json:"requests" yaml:"requests"`
	Interval time.Duration `json:"interval" yaml:"interval"`

	OnLimit func() `json:"-" yaml:"-"`
}

// Validate reports a non-positive request count or interval.
func (c RateLimiterConfig) Validate() error {
	if c.Requests < 1 {
		return fmt.Errorf("%w: rate limiter requests must be >= 1, got %d", ErrInvalidConfig, c.Requests)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: rate limiter interval must be > 0, got %s", ErrInvalidConfig, c.Interval)
	}
	return nil
}

// RateLimiter rejects calls once the token bucket is empty.
type RateLimiter struct {
	config RateLimiterConfig
	bucket *ratelimit.Bucket
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) (*RateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RateLimiter{config: cfg, bucket: ratelimit.NewBucket(cfg.Requests, cfg.Interval)}, nil
}

// Allow consumes a token or returns a RATE_LIMIT_EXCEEDED fault carrying
// the time until the next refill.
func (l *RateLimiter) Allow() error {
	if l.bucket.Allow() {
		return nil
	}
	if l.config.OnLimit != nil {
		l.config.OnLimit()
	}
	return fault.RateLimitExceeded(l.bucket.RetryAfter())
}

// Stats returns the bucket state.
func (l *RateLimiter) Stats() ratelimit.BucketStats {
	return l.bucket.Stats()
}

// Reset refills the bucket.
func (l *RateLimiter) Reset() {
	l.bucket.Reset()
}

// WithRateLimiter admits calls to op through l.
func WithRateLimiter[In, Out any](op chaos.Func[In, Out], l *RateLimiter) chaos.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		if err := l.Allow(); err != nil {
			var zero Out
			return zero, err
		}
		return op(ctx, in)
	}
}
