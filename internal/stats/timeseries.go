package stats

import (
	"sort"
	"strconv"

	"github.com/NodePath81/sirius/internal/ledger"
)

// Bucket aggregates the records whose relative start time floors into one
// second of the run. Field names are part of the published export contract.
type Bucket struct {
	Second            int            `json:"second"`
	StartEpoch        float64        `json:"start_epoch"`
	Count             int            `json:"count"`
	Successes         int            `json:"successes"`
	Failures          int            `json:"failures"`
	RequestsPerSecond int            `json:"requests_per_second"`
	AvgLatencyS       float64        `json:"avg_latency_s"`
	P50S              float64        `json:"p50_s"`
	P90S              float64        `json:"p90_s"`
	AvgLatencyMs      float64        `json:"avg_latency_ms"`
	P50Ms             float64        `json:"p50_ms"`
	P90Ms             float64        `json:"p90_ms"`
	StatusCounts      map[string]int `json:"status_counts"`
}

// Timeseries buckets a ledger snapshot by the second in which each attempt
// started, relative to the run start. Buckets are contiguous from second 0
// through the last second with a record; gaps are zero-filled because
// downstream charting assumes a continuous x-axis. A bucket's start_epoch is
// the base epoch plus its second index, independent of scheduling jitter
// inside the second. An empty snapshot yields no buckets.
func Timeseries(records []ledger.Record) []Bucket {
	if len(records) == 0 {
		return nil
	}

	baseEpoch := records[0].StartEpoch - records[0].StartRelS
	lastSec := 0
	for _, rec := range records {
		if epoch := rec.StartEpoch - rec.StartRelS; epoch < baseEpoch {
			baseEpoch = epoch
		}
		if sec := int(rec.StartRelS); sec > lastSec {
			lastSec = sec
		}
	}

	grouped := make(map[int][]ledger.Record)
	for _, rec := range records {
		sec := int(rec.StartRelS)
		grouped[sec] = append(grouped[sec], rec)
	}

	buckets := make([]Bucket, 0, lastSec+1)
	for sec := 0; sec <= lastSec; sec++ {
		b := Bucket{
			Second:       sec,
			StartEpoch:   baseEpoch + float64(sec),
			StatusCounts: make(map[string]int),
		}
		recs := grouped[sec]
		latencies := make([]float64, 0, len(recs))
		for _, rec := range recs {
			b.Count++
			if rec.OK {
				b.Successes++
			} else {
				b.Failures++
			}
			latencies = append(latencies, rec.TimeS)
			if rec.HasStatus() {
				b.StatusCounts[strconv.Itoa(*rec.Status)]++
			} else {
				b.StatusCounts[ErrorKey]++
			}
		}
		b.RequestsPerSecond = b.Count
		if len(latencies) > 0 {
			sort.Float64s(latencies)
			b.AvgLatencyS = mean(latencies)
			b.P50S = Percentile(latencies, 50)
			b.P90S = Percentile(latencies, 90)
			b.AvgLatencyMs = RoundMs(b.AvgLatencyS)
			b.P50Ms = RoundMs(b.P50S)
			b.P90Ms = RoundMs(b.P90S)
		}
		buckets = append(buckets, b)
	}
	return buckets
}
