package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// counter is an operation that fails while failing is set and counts its
// invocations.
type counter struct {
	calls   atomic.Int32
	failing atomic.Bool
}

func (c *counter) op(_ context.Context, in string) (string, error) {
	c.calls.Add(1)
	if c.failing.Load() {
		return "", errBoom
	}
	return "ok:" + in, nil
}

// failFirst fails the first n calls.
func failFirst(n int32) (chaos.Func[string, string], *atomic.Int32) {
	var calls atomic.Int32
	return func(_ context.Context, in string) (string, error) {
		if calls.Add(1) <= n {
			return "", errBoom
		}
		return "ok:" + in, nil
	}, &calls
}
