// Package diagnostics correlates chaos events with the logical requests
// that triggered them and summarizes a test session.
//
// The caller assigns request ids explicitly:
//
//	s := diagnostics.New()
//	detach := s.Attach(engine)
//	defer detach()
//
//	s.Before(1)
//	start := time.Now()
//	text, err := generate(ctx, prompt)
//	if err != nil {
//	    s.Failure(1, time.Since(start), err)
//	} else {
//	    s.Success(1, time.Since(start), text)
//	}
//	diagnostics.WriteReport(os.Stdout, s.Stats())
package diagnostics

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/mayhem/internal/latency"
	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// retryEvents are the event types counted as retries of a request. The
// count is a display heuristic, not retry accounting.
var retryEvents = []chaos.EventType{
	chaos.EventRateLimit,
	chaos.EventOverloaded,
	chaos.EventModelUnavailable,
	chaos.EventFail,
}

// Entry is a recorded event tagged with its offset from the session start
// and the request that was current when it fired.
type Entry struct {
	chaos.Event
	At      time.Duration `json:"at"`
	Request int           `json:"request"`
}

// RequestResult is the outcome of one request.
type RequestResult struct {
	ID        int           `json:"id"`
	OK        bool          `json:"ok"`
	Duration  time.Duration `json:"duration"`
	Text      string        `json:"text,omitempty"`
	Error     string        `json:"error,omitempty"`
	Status    int           `json:"status,omitempty"`
	Retryable *bool         `json:"retryable,omitempty"`
	Retries   int           `json:"retries"`
	Events    []Entry       `json:"events"`
}

// EventCount is the number of events of one type.
type EventCount struct {
	Type    chaos.EventType `json:"type"`
	Count   int             `json:"count"`
	Percent int             `json:"percent"`
}

// LatencyStats splits request latency by outcome.
type LatencyStats struct {
	Success latency.Summary `json:"success"`
	Failure latency.Summary `json:"failure"`
}

// Stats summarizes a session.
type Stats struct {
	Session     string          `json:"session"`
	Duration    time.Duration   `json:"duration"`
	Total       int             `json:"total"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	SuccessRate float64         `json:"successRate"`
	Latency     LatencyStats    `json:"latency"`
	Events      []EventCount    `json:"events"`
	TotalEvents int             `json:"totalEvents"`
	Requests    []RequestResult `json:"requests"`
	Errors      []RequestResult `json:"errors"`
}

// Session is a mutable diagnostics context. It is safe for concurrent use,
// but request attribution follows the single current id set by Before.
type Session struct {
	mu       sync.Mutex
	id       string
	start    time.Time
	now      func() time.Time
	current  int
	events   []Entry
	requests []RequestResult
}

// New starts an empty session.
func New() *Session {
	s := &Session{id: uuid.NewString(), now: time.Now}
	s.start = s.now()
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Track records ev against the current request. It has the signature of
// chaos.Config.OnEvent.
func (s *Session) Track(ev chaos.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Entry{Event: ev, At: s.now().Sub(s.start), Request: s.current})
}

// Attach tracks every chaos event emitted by e until the returned function
// is called. Lifecycle events are ignored.
func (s *Session) Attach(e *chaos.Engine) (detach func()) {
	return e.On(func(ev chaos.Event) {
		if ev.IsChaos() {
			s.Track(ev)
		}
	})
}

// Before makes id the current request.
func (s *Session) Before(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// Success records a passing request.
func (s *Session) Success(id int, d time.Duration, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.eventsFor(id)
	s.requests = append(s.requests, RequestResult{
		ID:       id,
		OK:       true,
		Duration: d,
		Text:     text,
		Retries:  countRetries(events),
		Events:   events,
	})
}

// Failure records a failing request. Message, status and retryability are
// taken from a fault in err's chain when there is one.
func (s *Session) Failure(id int, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.eventsFor(id)
	r := RequestResult{
		ID:       id,
		Duration: d,
		Retries:  countRetries(events),
		Events:   events,
	}
	if err != nil {
		r.Error = err.Error()
	}
	if f, ok := fault.As(err); ok {
		r.Error = f.Message
		r.Status = f.StatusCode
		retryable := f.Retryable
		r.Retryable = &retryable
	}
	s.requests = append(s.requests, r)
}

// eventsFor returns a copy of the events of request id. Caller must hold
// s.mu.
func (s *Session) eventsFor(id int) []Entry {
	out := []Entry{}
	for _, e := range s.events {
		if e.Request == id {
			out = append(out, e)
		}
	}
	return out
}

func countRetries(events []Entry) int {
	n := 0
	for _, e := range events {
		if slices.Contains(retryEvents, e.Type) {
			n++
		}
	}
	return n
}

// RequestEvents returns the events recorded while id was current.
func (s *Session) RequestEvents(id int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsFor(id)
}

// Events returns every recorded event in order.
func (s *Session) Events() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Requests returns every recorded request in order.
func (s *Session) Requests() []RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Errors returns the failed requests in order.
func (s *Session) Errors() []RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return failed(s.requests)
}

func failed(requests []RequestResult) []RequestResult {
	out := []RequestResult{}
	for _, r := range requests {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}

// Stats computes the session summary. Event counts are ordered by count,
// most frequent first, ties in order of first occurrence.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Session:     s.id,
		Duration:    s.now().Sub(s.start).Round(time.Millisecond),
		Total:       len(s.requests),
		TotalEvents: len(s.events),
		Requests:    slices.Clone(s.requests),
		Errors:      failed(s.requests),
		Events:      []EventCount{},
	}

	var okTimes, failTimes []time.Duration
	for _, r := range s.requests {
		if r.OK {
			st.Succeeded++
			okTimes = append(okTimes, r.Duration)
		} else {
			st.Failed++
			failTimes = append(failTimes, r.Duration)
		}
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Succeeded) / float64(st.Total)
	}
	st.Latency = LatencyStats{
		Success: latency.Summarize(okTimes),
		Failure: latency.Summarize(failTimes),
	}

	index := make(map[chaos.EventType]int)
	for _, e := range s.events {
		i, ok := index[e.Type]
		if !ok {
			i = len(st.Events)
			index[e.Type] = i
			st.Events = append(st.Events, EventCount{Type: e.Type})
		}
		st.Events[i].Count++
	}
	slices.SortStableFunc(st.Events, func(a, b EventCount) int { return b.Count - a.Count })
	for i := range st.Events {
		st.Events[i].Percent = int(float64(st.Events[i].Count)/float64(st.TotalEvents)*100 + 0.5)
	}
	return st
}
