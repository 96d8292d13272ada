package metrics

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/resilience"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "circuit_open", Outcome(fault.CircuitOpen()))
	assert.Equal(t, "ai_rate_limit", Outcome(fault.AIRateLimit(0)))
	assert.Equal(t, "error", Outcome(errors.New("plain")))
}

func TestCollector_ObservesEngine(t *testing.T) {
	c := newTestCollector(t)
	e := chaos.NewEngine(chaos.WithObserver(c))
	ok := func(context.Context, string) (string, error) { return "ok", nil }

	clean := chaos.Wrap(ok, chaos.Config{Delay: chaos.Fixed(time.Millisecond)}, chaos.WithEngine(e), chaos.WithTarget("clean"))
	failing := chaos.Wrap(ok, chaos.Config{Fail: 1}, chaos.WithEngine(e), chaos.WithTarget("failing"))

	for range 3 {
		_, err := clean(context.Background(), "x")
		require.NoError(t, err)
	}
	_, err := failing(context.Background(), "x")
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.calls.WithLabelValues("clean", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("failing", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.events.WithLabelValues("delay")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("fail")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
	assert.Equal(t, 2, testutil.CollectAndCount(c.events))
}

func TestCollector_HangHasNoLatency(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveCall(context.Background(), chaos.Call{Target: "hang", Duration: -1, Err: fault.Timeout(0)})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("hang", "timeout")))
	assert.Equal(t, 0, testutil.CollectAndCount(c.duration))
}

func TestCollector_Retries(t *testing.T) {
	c := newTestCollector(t)
	e := chaos.NewEngine(chaos.WithObserver(c))

	var calls int
	op := func(context.Context, string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}
	retry, err := resilience.Retry(op, resilience.RetryConfig{Attempts: 3},
		resilience.WithEngine(e), resilience.WithName("search"))
	require.NoError(t, err)
	_, err = retry(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.retries.WithLabelValues("search")))
	assert.Equal(t, 0, testutil.CollectAndCount(c.events))
}

func TestCollector_ObserveBreaker(t *testing.T) {
	c := newTestCollector(t)
	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Threshold: 1, Cooldown: time.Hour})
	require.NoError(t, err)

	c.ObserveBreaker("payments", cb)
	gauge := c.circuit.WithLabelValues("payments")
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))

	cb.Trip()
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))
	cb.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestCollector_Exposition(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveEvent(context.Background(), chaos.Event{Type: chaos.EventStreamCut})

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	assert.Contains(t, buf.String(), `mayhem_chaos_events_total{type="streamCut"} 1`)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mayhem_chaos_events_total"))
}
