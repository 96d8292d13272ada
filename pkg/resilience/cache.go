package resilience

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"

	"github.com/getmockd/mayhem/pkg/chaos"
)

// CacheConfig configures a Cache.
type CacheConfig[In any] struct {
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Key derives the cache key from the input. The structural hash of the
	// input is used when nil.
	Key    func(In) (string, error) `json:"-" yaml:"-"`
	OnHit  func(key string)         `json:"-" yaml:"-"`
	OnMiss func(key string)         `json:"-" yaml:"-"`
}

type cacheEntry[Out any] struct {
	value     Out
	expiresAt time.Time
}

// Cache memoizes successful results of an operation for TTL. Errors are
// never cached and concurrent misses for the same key share one call.
// Expired entries are dropped lazily when read.
type Cache[In, Out any] struct {
	op     chaos.Func[In, Out]
	config CacheConfig[In]
	group  singleflight.Group
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry[Out]
}

// NewCache wraps op with a result cache.
func NewCache[In, Out any](op chaos.Func[In, Out], cfg CacheConfig[In]) (*Cache[In, Out], error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: cache ttl must be > 0, got %s", ErrInvalidConfig, cfg.TTL)
	}
	return &Cache[In, Out]{
		op:      op,
		config:  cfg,
		now:     time.Now,
		entries: make(map[string]cacheEntry[Out]),
	}, nil
}

// HashKey returns the structural hash of v as a decimal string.
func HashKey(v any) (string, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash cache key: %w", err)
	}
	return strconv.FormatUint(h, 10), nil
}

func (c *Cache[In, Out]) key(in In) (string, error) {
	if c.config.Key != nil {
		return c.config.Key(in)
	}
	return HashKey(in)
}

// Call returns the cached value for in or invokes the operation.
func (c *Cache[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	key, err := c.key(in)
	if err != nil {
		var zero Out
		return zero, err
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		if c.config.OnHit != nil {
			c.config.OnHit(key)
		}
		return entry.value, nil
	}
	if c.config.OnMiss != nil {
		c.config.OnMiss(key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		out, err := c.op(ctx, in)
		if err != nil {
			return out, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry[Out]{value: out, expiresAt: c.now().Add(c.config.TTL)}
		c.mu.Unlock()
		return out, nil
	})
	out, _ := v.(Out)
	return out, err
}

// Func returns Call as a chaos.Func.
func (c *Cache[In, Out]) Func() chaos.Func[In, Out] {
	return c.Call
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[In, Out]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache[In, Out]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
