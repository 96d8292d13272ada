package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type query struct {
	Table string
	Limit int
}

func TestCache_HitAndExpiry(t *testing.T) {
	var hits, misses []string
	c := &counter{}
	cache, err := NewCache(c.op, CacheConfig[string]{
		TTL:    time.Minute,
		Key:    func(in string) (string, error) { return in, nil },
		OnHit:  func(k string) { hits = append(hits, k) },
		OnMiss: func(k string) { misses = append(misses, k) },
	})
	require.NoError(t, err)
	clock := newFakeClock()
	cache.now = clock.Now
	ctx := context.Background()

	out, err := cache.Call(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ok:a", out)

	out, err = cache.Call(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ok:a", out)
	assert.EqualValues(t, 1, c.calls.Load())

	clock.Advance(time.Minute)
	_, err = cache.Call(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.calls.Load())

	assert.Equal(t, []string{"a"}, hits)
	assert.Equal(t, []string{"a", "a"}, misses)
	assert.Equal(t, 1, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := &counter{}
	c.failing.Store(true)
	cache, err := NewCache(c.op, CacheConfig[string]{TTL: time.Minute})
	require.NoError(t, err)

	_, err = cache.Call(context.Background(), "a")
	require.ErrorIs(t, err, errBoom)
	_, err = cache.Call(context.Background(), "a")
	require.ErrorIs(t, err, errBoom)
	assert.EqualValues(t, 2, c.calls.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestCache_StructuralKey(t *testing.T) {
	var calls atomic.Int32
	op := func(_ context.Context, q query) (int, error) {
		calls.Add(1)
		return q.Limit, nil
	}
	cache, err := NewCache(op, CacheConfig[query]{TTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = cache.Call(ctx, query{Table: "users", Limit: 10})
	_, _ = cache.Call(ctx, query{Table: "users", Limit: 10})
	_, _ = cache.Call(ctx, query{Table: "users", Limit: 20})
	assert.EqualValues(t, 2, calls.Load())

	k1, err := HashKey(query{Table: "users", Limit: 10})
	require.NoError(t, err)
	k2, err := HashKey(query{Table: "users", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestCache_KeyError(t *testing.T) {
	c := &counter{}
	keyErr := errors.New("no key")
	cache, err := NewCache(c.op, CacheConfig[string]{
		TTL: time.Minute,
		Key: func(string) (string, error) { return "", keyErr },
	})
	require.NoError(t, err)

	_, err = cache.Call(context.Background(), "a")
	assert.ErrorIs(t, err, keyErr)
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestCache_ConcurrentMissesShareCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	op := func(_ context.Context, in string) (string, error) {
		calls.Add(1)
		<-release
		return in, nil
	}
	cache, err := NewCache(op, CacheConfig[string]{TTL: time.Minute})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := cache.Call(context.Background(), "k")
			assert.NoError(t, err)
			assert.Equal(t, "k", out)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestCache_Validate(t *testing.T) {
	c := &counter{}
	_, err := NewCache(c.op, CacheConfig[string]{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
