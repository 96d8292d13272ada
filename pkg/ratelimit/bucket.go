// Package ratelimit provides the interval token bucket behind the
// resilience rate limiter.
//
// A Bucket holds up to Capacity tokens and regains Capacity tokens for
// every whole interval that has elapsed since the last refill. Refills are
// computed lazily when a token is requested; no background timer runs.
package ratelimit

import (
	"sync"
	"time"
)

// Bucket is an interval token bucket. It is safe for concurrent use.
type Bucket struct {
	tokens     int
	capacity   int
	interval   time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// BucketStats contains token bucket statistics.
type BucketStats struct {
	Available int           `json:"available"`
	Capacity  int           `json:"capacity"`
	Interval  time.Duration `json:"interval"`
}

// NewBucket creates a bucket allowing requests calls per interval. The
// bucket starts full. Callers validate that both values are positive.
func NewBucket(requests int, interval time.Duration) *Bucket {
	b := &Bucket{
		tokens:   requests,
		capacity: requests,
		interval: interval,
		now:      time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// refill adds requests tokens per whole elapsed interval. Caller must hold
// b.mu.
func (b *Bucket) refill(now time.Time) {
	if b.interval <= 0 {
		return
	}
	intervals := int(now.Sub(b.lastRefill) / b.interval)
	if intervals <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+intervals*b.capacity)
	b.lastRefill = now
}

// Allow tries to consume one token. Returns true if a token was available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.now())

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter returns how long until the next refill.
func (b *Bucket) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	wait := b.interval - b.now().Sub(b.lastRefill)
	return max(wait, 0)
}

// Available returns the current number of tokens, including a pending
// refill.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.now())
	return b.tokens
}

// Reset refills the bucket to its capacity.
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.capacity
	b.lastRefill = b.now()
}

// Stats returns the current bucket statistics.
func (b *Bucket) Stats() BucketStats {
	return BucketStats{
		Available: b.Available(),
		Capacity:  b.capacity,
		Interval:  b.interval,
	}
}
