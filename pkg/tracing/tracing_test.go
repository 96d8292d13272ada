package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/resilience"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func echo(_ context.Context, in string) (string, error) { return in, nil }

func TestWrap_Success(t *testing.T) {
	rec, tp := newRecorder(t)
	op := Wrap(echo, Tracer(tp), "echo")

	out, err := op(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "echo", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestWrap_FaultAttributes(t *testing.T) {
	rec, tp := newRecorder(t)
	op := Wrap(func(context.Context, string) (string, error) {
		return "", fault.AIOverloaded()
	}, Tracer(tp), "generate")

	_, err := op(context.Background(), "hi")
	require.Error(t, err)

	span := rec.Ended()[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	attrs := attrMap(span.Attributes())
	assert.Equal(t, "AI_OVERLOADED", attrs[KeyCode].AsString())
	assert.Equal(t, int64(529), attrs[KeyHTTPCode].AsInt64())
	assert.True(t, attrs[KeyRetryable].AsBool())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)
}

func TestWrap_PlainError(t *testing.T) {
	rec, tp := newRecorder(t)
	op := Wrap(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	}, Tracer(tp), "op")

	_, _ = op(context.Background(), "x")
	attrs := attrMap(rec.Ended()[0].Attributes())
	_, ok := attrs[KeyCode]
	assert.False(t, ok)
}

func TestObserver_ChaosEvents(t *testing.T) {
	rec, tp := newRecorder(t)
	e := chaos.NewEngine(chaos.WithObserver(NewObserver()))
	op := Wrap(
		chaos.Wrap(echo, chaos.Config{Delay: chaos.Fixed(time.Millisecond)}, chaos.WithEngine(e), chaos.WithTarget("fetch")),
		Tracer(tp), "fetch",
	)

	_, err := op(context.Background(), "x")
	require.NoError(t, err)

	span := rec.Ended()[0]
	require.Len(t, span.Events(), 1)
	ev := span.Events()[0]
	assert.Equal(t, "chaos.delay", ev.Name)
	attrs := attrMap(ev.Attributes)
	assert.Equal(t, "fetch", attrs[KeyTarget].AsString())
	assert.Equal(t, int64(1), attrs[KeyDelayMS].AsInt64())

	callAttrs := attrMap(span.Attributes())
	assert.Equal(t, "success", callAttrs[KeyOutcome].AsString())
}

func TestObserver_RetryEvents(t *testing.T) {
	rec, tp := newRecorder(t)
	e := chaos.NewEngine(chaos.WithObserver(NewObserver()))

	var calls int
	flaky := func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", fault.AIRateLimit(0)
		}
		return "ok", nil
	}
	retry, err := resilience.Retry(flaky, resilience.RetryConfig{Attempts: 2},
		resilience.WithEngine(e), resilience.WithName("gen"))
	require.NoError(t, err)

	_, err = Wrap(retry, Tracer(tp), "gen")(context.Background(), "x")
	require.NoError(t, err)

	events := rec.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "chaos.retry", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, int64(1), attrs[KeyAttempt].AsInt64())
	assert.Equal(t, "AI_RATE_LIMIT", attrs[KeyCode].AsString())
}

func TestObserver_NoSpan(t *testing.T) {
	o := NewObserver()
	o.ObserveEvent(context.Background(), chaos.Event{Type: chaos.EventFail})
	o.ObserveCall(context.Background(), chaos.Call{Target: "x"})
}
