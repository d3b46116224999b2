// Package stats derives the run summary and the per-second timeseries from a
// ledger snapshot. Both computations are pure functions of their inputs:
// calling them twice on the same snapshot yields identical results.
package stats

import (
	"sort"
	"strconv"

	"github.com/NodePath81/sirius/internal/ledger"
)

// ErrorKey is the status_counts key for attempts that failed before an HTTP
// status was observed. It is non-numeric so it can never collide with a real
// status code.
const ErrorKey = "error"

// Summary is the overall result of a run. Field names and the *_s/*_ms dual
// representation are a published file-format contract consumed by external
// tooling and must not change.
type Summary struct {
	TotalRequests      int            `json:"total_requests"`
	SuccessfulRequests int            `json:"successful_requests"`
	FailedRequests     int            `json:"failed_requests"`
	TotalDurationS     float64        `json:"total_duration_s"`
	RequestsPerSecond  float64        `json:"requests_per_second"`
	StatusCounts       map[string]int `json:"status_counts"`

	MinS    float64 `json:"min_s"`
	MeanS   float64 `json:"mean_s"`
	MedianS float64 `json:"median_s"`
	MaxS    float64 `json:"max_s"`
	StdevS  float64 `json:"stdev_s"`
	P50S    float64 `json:"p50_s"`
	P90S    float64 `json:"p90_s"`
	P95S    float64 `json:"p95_s"`
	P99S    float64 `json:"p99_s"`

	MinMs    float64 `json:"min_ms"`
	MeanMs   float64 `json:"mean_ms"`
	MedianMs float64 `json:"median_ms"`
	MaxMs    float64 `json:"max_ms"`
	StdevMs  float64 `json:"stdev_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P90Ms    float64 `json:"p90_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`

	TotalDurationMs float64 `json:"total_duration_ms"`
}

// Summarize computes the summary over a ledger snapshot. totalDurationS is
// the wall time from the first submitted attempt to the last appended
// record, measured by the dispatcher. An empty snapshot yields a zeroed
// summary, never an error; a 100% failure rate is a reportable outcome.
func Summarize(records []ledger.Record, totalDurationS float64) Summary {
	sum := Summary{
		TotalRequests:   len(records),
		TotalDurationS:  totalDurationS,
		TotalDurationMs: RoundMs(totalDurationS),
		StatusCounts:    make(map[string]int),
	}

	latencies := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.OK {
			sum.SuccessfulRequests++
		}
		latencies = append(latencies, rec.TimeS)
		if rec.HasStatus() {
			sum.StatusCounts[strconv.Itoa(*rec.Status)]++
		} else {
			sum.StatusCounts[ErrorKey]++
		}
	}
	sum.FailedRequests = sum.TotalRequests - sum.SuccessfulRequests
	if totalDurationS > 0 {
		sum.RequestsPerSecond = float64(sum.TotalRequests) / totalDurationS
	}

	if len(latencies) == 0 {
		return sum
	}
	sort.Float64s(latencies)

	sum.MinS = latencies[0]
	sum.MaxS = latencies[len(latencies)-1]
	sum.MeanS = mean(latencies)
	sum.MedianS = Percentile(latencies, 50)
	sum.StdevS = sampleStdev(latencies)
	sum.P50S = Percentile(latencies, 50)
	sum.P90S = Percentile(latencies, 90)
	sum.P95S = Percentile(latencies, 95)
	sum.P99S = Percentile(latencies, 99)

	sum.MinMs = RoundMs(sum.MinS)
	sum.MaxMs = RoundMs(sum.MaxS)
	sum.MeanMs = RoundMs(sum.MeanS)
	sum.MedianMs = RoundMs(sum.MedianS)
	sum.StdevMs = RoundMs(sum.StdevS)
	sum.P50Ms = RoundMs(sum.P50S)
	sum.P90Ms = RoundMs(sum.P90S)
	sum.P95Ms = RoundMs(sum.P95S)
	sum.P99Ms = RoundMs(sum.P99S)

	return sum
}
