package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mayhem/pkg/fault"
)

func TestRateLimiter(t *testing.T) {
	var limited int
	l, err := NewRateLimiter(RateLimiterConfig{
		Requests: 2,
		Interval: time.Hour,
		OnLimit:  func() { limited++ },
	})
	require.NoError(t, err)
	c := &counter{}
	guarded := WithRateLimiter(c.op, l)
	ctx := context.Background()

	for range 2 {
		_, err := guarded(ctx, "x")
		require.NoError(t, err)
	}

	_, err = guarded(ctx, "x")
	require.ErrorIs(t, err, fault.ErrRateLimitExceeded)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Greater(t, f.RetryAfter, 59*time.Minute)
	assert.Equal(t, 429, f.StatusCode)
	assert.Equal(t, 1, limited)
	assert.EqualValues(t, 2, c.calls.Load())

	l.Reset()
	assert.Equal(t, 2, l.Stats().Available)
	_, err = guarded(ctx, "x")
	assert.NoError(t, err)
}

func TestRateLimiter_Refill(t *testing.T) {
	l, err := NewRateLimiter(RateLimiterConfig{Requests: 1, Interval: 20 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, l.Allow())
	require.Error(t, l.Allow())
	require.Eventually(t, func() bool { return l.Allow() == nil }, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_Validate(t *testing.T) {
	for _, cfg := range []RateLimiterConfig{{Requests: 0, Interval: time.Second}, {Requests: 1}} {
		_, err := NewRateLimiter(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}
