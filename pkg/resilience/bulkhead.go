package resilience

import (
	"context"
	"fmt"
	"sync"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	MaxConcurrent int `json:"maxConcurrent" yaml:"maxConcurrent"`
	// MaxQueue bounds the number of waiting calls. Zero means unbounded.
	MaxQueue int `json:"maxQueue,omitempty" yaml:"maxQueue,omitempty"`

	OnReject func() `json:"-" yaml:"-"`
}

// Validate reports a non-positive concurrency or a negative queue size.
func (c BulkheadConfig) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("%w: bulkhead maxConcurrent must be >= 1, got %d", ErrInvalidConfig, c.MaxConcurrent)
	}
	if c.MaxQueue < 0 {
		return fmt.Errorf("%w: bulkhead maxQueue must be >= 0, got %d", ErrInvalidConfig, c.MaxQueue)
	}
	return nil
}

// Bulkhead limits concurrent executions. Calls beyond MaxConcurrent wait
// in FIFO order; calls beyond MaxQueue are rejected with BULKHEAD_FULL.
type Bulkhead struct {
	mu       sync.Mutex
	config   BulkheadConfig
	inFlight int
	queue    []chan struct{}
	rejected int64
}

// BulkheadStats is a point-in-time view of a bulkhead.
type BulkheadStats struct {
	InFlight int   `json:"inFlight"`
	Queued   int   `json:"queued"`
	Rejected int64 `json:"rejected"`
}

// NewBulkhead creates an empty bulkhead.
func NewBulkhead(cfg BulkheadConfig) (*Bulkhead, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bulkhead{config: cfg}, nil
}

// Acquire takes a slot, waiting in line when all are busy. Every
// successful Acquire must be paired with Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	b.mu.Lock()
	if b.inFlight < b.config.MaxConcurrent && len(b.queue) == 0 {
		b.inFlight++
		b.mu.Unlock()
		return nil
	}
	if b.config.MaxQueue > 0 && len(b.queue) >= b.config.MaxQueue {
		b.rejected++
		b.mu.Unlock()
		if b.config.OnReject != nil {
			b.config.OnReject()
		}
		return fault.BulkheadFull()
	}
	ready := make(chan struct{})
	b.queue = append(b.queue, ready)
	b.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, ch := range b.queue {
			if ch == ready {
				b.queue = append(b.queue[:i], b.queue[i+1:]...)
				return ctx.Err()
			}
		}
		// The slot was handed over while ctx ended; pass it on.
		b.releaseLocked()
		return ctx.Err()
	}
}

// Release frees a slot, handing it directly to the oldest waiter.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

func (b *Bulkhead) releaseLocked() {
	if len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		close(next)
		return
	}
	b.inFlight--
}

// Stats returns the current occupancy.
func (b *Bulkhead) Stats() BulkheadStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadStats{InFlight: b.inFlight, Queued: len(b.queue), Rejected: b.rejected}
}

// WithBulkhead runs op inside b.
func WithBulkhead[In, Out any](op chaos.Func[In, Out], b *Bulkhead) chaos.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		if err := b.Acquire(ctx); err != nil {
			var zero Out
			return zero, err
		}
		defer b.Release()
		return op(ctx, in)
	}
}
