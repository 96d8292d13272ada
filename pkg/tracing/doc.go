// Package tracing connects chaos activity to OpenTelemetry traces.
//
// Wrap starts a span per call and records failures with their fault
// attributes. An Observer attached to the engine adds a span event named
// "chaos.<type>" to the span found in the call context for every knob that
// fires, so injected faults show up inside the traced call:
//
//	e := chaos.NewEngine(chaos.WithObserver(tracing.NewObserver()))
//	op := tracing.Wrap(
//	    chaos.Wrap(fetch, cfg, chaos.WithEngine(e), chaos.WithTarget("fetch")),
//	    tracing.Tracer(nil), "fetch",
//	)
package tracing
