package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// InstrumentationName names the tracer returned by Tracer.
const InstrumentationName = "github.com/getmockd/mayhem"

// Attribute keys.
const (
	KeyTarget    = attribute.Key("chaos.target")
	KeyDelayMS   = attribute.Key("chaos.delay_ms")
	KeyStatus    = attribute.Key("chaos.status")
	KeyAttempt   = attribute.Key("chaos.attempt")
	KeyOutcome   = attribute.Key("chaos.outcome")
	KeyCode      = attribute.Key("fault.code")
	KeyHTTPCode  = attribute.Key("fault.status")
	KeyRetryable = attribute.Key("fault.retryable")
)

// Tracer returns the package tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

// Wrap runs every call of op in a span named name.
func Wrap[In, Out any](op chaos.Func[In, Out], tracer trace.Tracer, name string) chaos.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		ctx, span := tracer.Start(ctx, name)
		defer span.End()

		out, err := op(ctx, in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(faultAttributes(err)...)
			return out, err
		}
		span.SetStatus(codes.Ok, "")
		return out, nil
	}
}

func faultAttributes(err error) []attribute.KeyValue {
	f, ok := fault.As(err)
	if !ok {
		return nil
	}
	attrs := []attribute.KeyValue{
		KeyCode.String(string(f.Code)),
		KeyRetryable.Bool(f.Retryable),
	}
	if f.StatusCode != 0 {
		attrs = append(attrs, KeyHTTPCode.Int(f.StatusCode))
	}
	return attrs
}

// Observer records engine activity on the span in the call context. Calls
// made without a recording span are ignored.
type Observer struct{}

var _ chaos.Observer = (*Observer)(nil)

// NewObserver returns an Observer.
func NewObserver() *Observer {
	return &Observer{}
}

// ObserveEvent adds a "chaos.<type>" span event. Call outcomes are left
// to ObserveCall.
func (o *Observer) ObserveEvent(ctx context.Context, ev chaos.Event) {
	switch ev.Type {
	case chaos.EventCall, chaos.EventSuccess, chaos.EventFailure:
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{KeyTarget.String(ev.Target)}
	if ev.Delay > 0 {
		attrs = append(attrs, KeyDelayMS.Int64(ev.Delay.Milliseconds()))
	}
	if ev.Status != 0 {
		attrs = append(attrs, KeyStatus.Int(ev.Status))
	}
	if ev.Attempt > 0 {
		attrs = append(attrs, KeyAttempt.Int(ev.Attempt))
	}
	if ev.Err != nil {
		attrs = append(attrs, faultAttributes(ev.Err)...)
	}
	span.AddEvent("chaos."+string(ev.Type), trace.WithAttributes(attrs...))
}

// ObserveCall tags the span with the call outcome.
func (o *Observer) ObserveCall(ctx context.Context, call chaos.Call) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	outcome := "success"
	if call.Err != nil {
		outcome = "failure"
	}
	span.SetAttributes(KeyTarget.String(call.Target), KeyOutcome.String(outcome))
}
