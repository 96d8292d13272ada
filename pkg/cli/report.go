package cli

import (
	"strconv"
	"time"

	"github.com/getmockd/mayhem/internal/latency"
	"github.com/getmockd/mayhem/pkg/cli/internal/output"
)

type namedSummary struct {
	name    string
	summary latency.Summary
}

// latencyTable renders one row of percentiles per summary.
func latencyTable(rows ...namedSummary) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		s := r.summary
		cells = append(cells, []string{
			r.name,
			strconv.Itoa(s.Count),
			ms(s.Avg), ms(s.P50), ms(s.P95), ms(s.P99), ms(s.Min), ms(s.Max),
		})
	}
	return output.Table([]string{"", "n", "avg", "p50", "p95", "p99", "min", "max"}, cells)
}

func ms(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
