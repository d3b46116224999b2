// Package report serializes the core's outputs (summary, request ledger,
// timeseries) into the published file formats. Field names and the *_s/*_ms
// dual representation come straight from the structs' json tags and form a
// contract with external tooling; writers here must not rename or reorder
// them.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/NodePath81/sirius/internal/stats"
)

// Paths lists the optional export destinations for one run. Empty fields
// are skipped.
type Paths struct {
	SummaryJSON    string
	RequestLogCSV  string
	TimeseriesJSON string
	SummaryCSV     string
	TimeseriesCSV  string
	HTMLReport     string
}

func (p Paths) Any() bool {
	return p != Paths{}
}

// PrintSummary writes the human-readable console block.
func PrintSummary(w io.Writer, sum stats.Summary) {
	fmt.Fprintln(w, "\n=== API Performance Summary ===")
	fmt.Fprintf(w, "Total requests: %d\n", sum.TotalRequests)
	fmt.Fprintf(w, "Successful: %d\n", sum.SuccessfulRequests)
	fmt.Fprintf(w, "Failed: %d\n", sum.FailedRequests)
	fmt.Fprintf(w, "Total duration: %.3f ms\n", sum.TotalDurationMs)
	fmt.Fprintf(w, "Requests/sec: %.2f\n", sum.RequestsPerSecond)

	if sum.TotalRequests > 0 {
		fmt.Fprintln(w, "\nLatency (ms):")
		fmt.Fprintf(w, "  min: %.3f\n", sum.MinMs)
		fmt.Fprintf(w, "  mean: %.3f\n", sum.MeanMs)
		fmt.Fprintf(w, "  median: %.3f\n", sum.MedianMs)
		fmt.Fprintf(w, "  max: %.3f\n", sum.MaxMs)
		fmt.Fprintf(w, "  stdev: %.3f\n", sum.StdevMs)
		fmt.Fprintf(w, "  p50: %.3f\n", sum.P50Ms)
		fmt.Fprintf(w, "  p90: %.3f\n", sum.P90Ms)
		fmt.Fprintf(w, "  p95: %.3f\n", sum.P95Ms)
		fmt.Fprintf(w, "  p99: %.3f\n", sum.P99Ms)
	}

	fmt.Fprintln(w, "\nStatus codes:")
	keys := make([]string, 0, len(sum.StatusCounts))
	for k := range sum.StatusCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, sum.StatusCounts[k])
	}
}
