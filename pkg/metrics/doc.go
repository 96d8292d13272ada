// Package metrics exports chaos activity as Prometheus metrics.
//
// A Collector implements chaos.Observer and is attached to an engine at
// construction:
//
//	reg := prometheus.NewRegistry()
//	c, err := metrics.NewCollector(reg)
//	e := chaos.NewEngine(chaos.WithObserver(c))
//	http.Handle("/metrics", c.Handler())
//
// Exposed metrics:
//
//   - mayhem_calls_total: wrapped calls (labels: target, outcome)
//   - mayhem_call_duration_seconds: wrapped call latency (labels: target)
//   - mayhem_chaos_events_total: fired chaos knobs (labels: type)
//   - mayhem_retries_total: retry attempts (labels: target)
//   - mayhem_circuit_state: breaker state, 0 closed, 1 open, 2 half-open
//     (labels: name)
//
// Outcome is "success" or the fault code of the error, lowercased, with
// "error" for errors that carry no code.
package metrics
