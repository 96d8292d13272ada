package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/resilience"
)

const namespace = "mayhem"

// DurationBuckets are the latency histogram buckets in seconds.
var DurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Collector records engine activity. It implements chaos.Observer.
type Collector struct {
	registry *prometheus.Registry

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
	retries  *prometheus.CounterVec
	circuit  *prometheus.GaugeVec
}

var _ chaos.Observer = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg. A fresh
// registry is used when reg is nil.
func NewCollector(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total wrapped calls by target and outcome.",
		}, []string{"target", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wrapped call latency in seconds.",
			Buckets:   DurationBuckets,
		}, []string{"target"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chaos_events_total",
			Help:      "Total fired chaos events by type.",
		}, []string{"type"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total retry attempts by target.",
		}, []string{"target"}),
		circuit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
	}

	for _, col := range []prometheus.Collector{c.calls, c.duration, c.events, c.retries, c.circuit} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ObserveEvent counts chaos events and retries.
func (c *Collector) ObserveEvent(_ context.Context, ev chaos.Event) {
	switch {
	case ev.Type == chaos.EventRetry:
		c.retries.WithLabelValues(ev.Target).Inc()
	case ev.IsChaos():
		c.events.WithLabelValues(string(ev.Type)).Inc()
	}
}

// ObserveCall counts the call and records its latency. Hung calls carry
// no latency sample.
func (c *Collector) ObserveCall(_ context.Context, call chaos.Call) {
	c.calls.WithLabelValues(call.Target, Outcome(call.Err)).Inc()
	if call.Duration >= 0 {
		c.duration.WithLabelValues(call.Target).Observe(call.Duration.Seconds())
	}
}

// Outcome labels a call result.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if code := fault.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// ObserveBreaker exports cb's state under name and keeps it current.
func (c *Collector) ObserveBreaker(name string, cb *resilience.CircuitBreaker) {
	g := c.circuit.WithLabelValues(name)
	g.Set(float64(cb.State()))
	cb.OnStateChange(func(s resilience.CircuitState) {
		g.Set(float64(s))
	})
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteText writes every metric family in the text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
