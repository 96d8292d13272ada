package diagnostics

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/getmockd/mayhem/internal/latency"
	"github.com/getmockd/mayhem/pkg/chaos"
)

const barWidth = 20

// WriteReport renders st as plain text: summary, latency, event
// histogram, errors and the per-request timeline.
func WriteReport(w io.Writer, st Stats) error {
	p := &printer{w: w}

	p.section("summary")
	p.printf("  %-14s %s\n", "duration", st.Duration)
	p.printf("  %-14s %d\n", "requests", st.Total)
	p.printf("  %-14s %d (%d%%)\n", "succeeded", st.Succeeded, percent(st.SuccessRate))
	if st.Total > 0 {
		p.printf("  %-14s %d (%d%%)\n", "failed", st.Failed, 100-percent(st.SuccessRate))
	} else {
		p.printf("  %-14s %d (0%%)\n", "failed", st.Failed)
	}

	p.section("latency")
	p.latency("success", st.Latency.Success)
	p.latency("failure", st.Latency.Failure)

	p.section(fmt.Sprintf("chaos events (%d)", st.TotalEvents))
	maxCount := 1
	for _, e := range st.Events {
		maxCount = max(maxCount, e.Count)
	}
	for _, e := range st.Events {
		width := max(1, int(float64(e.Count)/float64(maxCount)*barWidth+0.5))
		p.printf("  %s %s %d (%d%%)\n", strings.Repeat("█", width), e.Type, e.Count, e.Percent)
	}

	if len(st.Errors) > 0 {
		p.section("errors")
		for _, r := range st.Errors {
			status := ""
			if r.Status != 0 {
				status = fmt.Sprintf("%d ", r.Status)
			}
			kind := ""
			if r.Retryable != nil {
				kind = "fatal "
				if *r.Retryable {
					kind = "retryable "
				}
			}
			p.printf("  #%d %s%s\n", r.ID, status, r.Error)
			p.printf("     %s%s [%s]\n", kind, r.Duration.Round(time.Millisecond), eventChain(r.Events, false))
		}
	}

	p.section("request timeline")
	for _, r := range st.Requests {
		icon := "✓"
		if !r.OK {
			icon = "✗"
		}
		chain := eventChain(r.Events, true)
		if chain == "" {
			chain = "clean"
		}
		p.printf("  %s #%d %7s  %s\n", icon, r.ID, r.Duration.Round(time.Millisecond), chain)
	}
	return p.err
}

// delayEvents carry a meaningful Delay.
var delayEvents = []chaos.EventType{chaos.EventDelay, chaos.EventSlowTokens}

func eventChain(events []Entry, withDelay bool) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		s := string(e.Type)
		if withDelay && e.Delay > 0 && slices.Contains(delayEvents, e.Type) {
			s += " " + e.Delay.String()
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " → ")
}

func percent(rate float64) int {
	return int(rate*100 + 0.5)
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	p.printf("\n  ─── %s ───\n\n", title)
}

func (p *printer) latency(label string, s latency.Summary) {
	if s.Count == 0 {
		return
	}
	p.printf("  %-8s avg %s  p50 %s  p99 %s  min %s  max %s\n", label, s.Avg, s.P50, s.P99, s.Min, s.Max)
}
