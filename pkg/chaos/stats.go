package chaos

import (
	"sync"
	"time"

	"github.com/getmockd/mayhem/internal/latency"
)

// Stats is a snapshot of the counters kept by an Engine.
type Stats struct {
	Calls       int64 `json:"calls"`
	Failures    int64 `json:"failures"`
	Timeouts    int64 `json:"timeouts"`
	Delays      int64 `json:"delays"`
	Corrupted   int64 `json:"corrupted"`
	RateLimited int64 `json:"rateLimited"`
	StreamsCut  int64 `json:"streamsCut"`

	Latency  latency.Summary        `json:"latency"`
	ByTarget map[string]TargetStats `json:"byTarget"`
}

// TargetStats breaks calls down by wrapped target.
type TargetStats struct {
	Calls    int64           `json:"calls"`
	Failures int64           `json:"failures"`
	Latency  latency.Summary `json:"latency"`
}

// SuccessRate returns the share of calls that did not fail, or 0 with no
// calls.
func (s Stats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Calls-s.Failures) / float64(s.Calls)
}

type targetRecord struct {
	calls     int64
	failures  int64
	latencies []time.Duration
}

type recorder struct {
	mu          sync.Mutex
	calls       int64
	failures    int64
	timeouts    int64
	delays      int64
	corrupted   int64
	rateLimited int64
	streamsCut  int64
	latencies   []time.Duration
	byTarget    map[string]*targetRecord
}

func newRecorder() *recorder {
	return &recorder{byTarget: make(map[string]*targetRecord)}
}

// recordCall counts one call. A negative latency means the call never
// settled and contributes no latency sample.
func (r *recorder) recordCall(target string, failed bool, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byTarget[target]
	if !ok {
		t = &targetRecord{}
		r.byTarget[target] = t
	}

	r.calls++
	t.calls++
	if failed {
		r.failures++
		t.failures++
	}
	if d >= 0 {
		r.latencies = append(r.latencies, d)
		t.latencies = append(t.latencies, d)
	}
}

func (r *recorder) recordEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventTimeout, EventToolTimeout:
		r.timeouts++
	case EventDelay, EventSlowTokens:
		r.delays++
	case EventCorrupt, EventCorruptChunk:
		r.corrupted++
	case EventRateLimit:
		r.rateLimited++
	case EventStreamCut:
		r.streamsCut++
	}
}

func (r *recorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTarget := make(map[string]TargetStats, len(r.byTarget))
	for name, t := range r.byTarget {
		byTarget[name] = TargetStats{
			Calls:    t.calls,
			Failures: t.failures,
			Latency:  latency.Summarize(t.latencies),
		}
	}

	return Stats{
		Calls:       r.calls,
		Failures:    r.failures,
		Timeouts:    r.timeouts,
		Delays:      r.delays,
		Corrupted:   r.corrupted,
		RateLimited: r.rateLimited,
		StreamsCut:  r.streamsCut,
		Latency:     latency.Summarize(r.latencies),
		ByTarget:    byTarget,
	}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls, r.failures, r.timeouts, r.delays = 0, 0, 0, 0
	r.corrupted, r.rateLimited, r.streamsCut = 0, 0, 0
	r.latencies = nil
	r.byTarget = make(map[string]*targetRecord)
}
