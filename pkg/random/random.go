// Package random provides the seedable probability source used to decide
// which chaos knobs fire.
//
// A Source is non-deterministic until Seed is called. After Seed(n) it
// produces the linear-congruential sequence derived from n, so two runs
// seeded with the same value make identical decisions.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgMask       = 0x7fffffff
	lcgModulus    = 1 << 31
)

// Source is a concurrency-safe uniform generator.
type Source struct {
	mu     sync.Mutex
	seeded bool
	state  uint64
	rng    *rand.Rand
}

// New returns a non-deterministic Source.
func New() *Source {
	s := &Source{}
	s.Reset()
	return s
}

// NewSeeded returns a Source already switched to the deterministic sequence.
func NewSeeded(seed int64) *Source {
	s := &Source{}
	s.Seed(seed)
	return s
}

// Seed switches the source to the deterministic sequence starting at n.
func (s *Source) Seed(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = true
	s.state = uint64(n) & lcgMask
}

// Reset restores a non-deterministic source.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = false
	s.state = 0
	s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
}

// Seeded reports whether the source is in deterministic mode.
func (s *Source) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		s.state = (s.state*lcgMultiplier + lcgIncrement) & lcgMask
		return float64(s.state) / lcgModulus
	}
	return s.rng.Float64()
}

// Chance reports whether an event with the given rate fires.
// Rates at or below zero never fire; rates at or above one always fire.
// Neither boundary consumes a draw.
func (s *Source) Chance(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	return s.Float64() < rate
}

// Between returns a uniform integer in [lo, hi]. Bounds are swapped if
// given in reverse order.
func (s *Source) Between(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return int(s.Float64()*float64(hi-lo+1)) + lo
}

// Intn returns a uniform integer in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float64() * float64(n))
}

// DurationBetween returns a uniform duration in [lo, hi] at millisecond
// granularity.
func (s *Source) DurationBetween(lo, hi time.Duration) time.Duration {
	return time.Duration(s.Between(int(lo.Milliseconds()), int(hi.Milliseconds()))) * time.Millisecond
}

// Pick returns a uniformly chosen element of items. It returns the zero
// value and false for an empty slice.
func Pick[T any](s *Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.Intn(len(items))], true
}
