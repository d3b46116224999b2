package stats

import (
	"reflect"
	"testing"

	"github.com/NodePath81/sirius/internal/ledger"
)

func relRecord(idx int, rel, latency float64, base float64) ledger.Record {
	status := 200
	return ledger.Record{
		Index:      idx,
		StartEpoch: base + rel,
		StartRelS:  rel,
		Status:     &status,
		OK:         true,
		TimeS:      latency,
	}
}

func TestTimeseriesZeroFillsGaps(t *testing.T) {
	const base = 1700000000.0
	recs := []ledger.Record{
		relRecord(0, 0.1, 0.01, base),
		relRecord(1, 0.2, 0.02, base),
		relRecord(2, 3.5, 0.03, base),
	}
	buckets := Timeseries(recs)

	if len(buckets) != 4 {
		t.Fatalf("bucket count = %d, want 4 (seconds 0..3)", len(buckets))
	}
	for i, b := range buckets {
		if b.Second != i {
			t.Errorf("bucket %d has second %d", i, b.Second)
		}
		if !almostEqual(b.StartEpoch, base+float64(i)) {
			t.Errorf("bucket %d start_epoch = %v, want %v", i, b.StartEpoch, base+float64(i))
		}
	}
	if buckets[0].Count != 2 || buckets[1].Count != 0 || buckets[2].Count != 0 || buckets[3].Count != 1 {
		t.Errorf("counts = %d,%d,%d,%d, want 2,0,0,1",
			buckets[0].Count, buckets[1].Count, buckets[2].Count, buckets[3].Count)
	}
	if buckets[1].StatusCounts == nil || len(buckets[1].StatusCounts) != 0 {
		t.Errorf("gap bucket status_counts = %v, want empty map", buckets[1].StatusCounts)
	}
}

func TestTimeseriesBucketStats(t *testing.T) {
	const base = 1000.0
	s502 := 502
	recs := []ledger.Record{
		relRecord(0, 0.1, 0.010, base),
		relRecord(1, 0.4, 0.030, base),
		relRecord(2, 0.9, 0.020, base),
		{Index: 3, StartEpoch: base + 0.5, StartRelS: 0.5, Status: &s502, OK: false, TimeS: 0.100},
	}
	buckets := Timeseries(recs)
	if len(buckets) != 1 {
		t.Fatalf("bucket count = %d, want 1", len(buckets))
	}
	b := buckets[0]
	if b.Count != 4 || b.Successes != 3 || b.Failures != 1 {
		t.Errorf("count/successes/failures = %d/%d/%d, want 4/3/1", b.Count, b.Successes, b.Failures)
	}
	if b.RequestsPerSecond != 4 {
		t.Errorf("requests_per_second = %d, want 4", b.RequestsPerSecond)
	}
	// sorted latencies: 0.010 0.020 0.030 0.100; nearest-rank p50 = index 1
	if !almostEqual(b.P50S, 0.020) {
		t.Errorf("p50_s = %v, want 0.020", b.P50S)
	}
	if !almostEqual(b.P90S, 0.100) {
		t.Errorf("p90_s = %v, want 0.100", b.P90S)
	}
	if !almostEqual(b.AvgLatencyS, 0.040) {
		t.Errorf("avg_latency_s = %v, want 0.040", b.AvgLatencyS)
	}
	want := map[string]int{"200": 3, "502": 1}
	if !reflect.DeepEqual(b.StatusCounts, want) {
		t.Errorf("status_counts = %v, want %v", b.StatusCounts, want)
	}
}

func TestTimeseriesEmpty(t *testing.T) {
	if buckets := Timeseries(nil); buckets != nil {
		t.Fatalf("Timeseries(nil) = %v, want nil", buckets)
	}
}

func TestTimeseriesDeterministic(t *testing.T) {
	recs := []ledger.Record{
		relRecord(0, 0.2, 0.015, 500),
		relRecord(1, 2.7, 0.045, 500),
	}
	a := Timeseries(recs)
	b := Timeseries(recs)
	if !reflect.DeepEqual(a, b) {
		t.Error("Timeseries is not deterministic")
	}
}

func TestPercentileClamps(t *testing.T) {
	vals := []float64{1, 2, 3}
	if got := Percentile(vals, 0); got != 1 {
		t.Errorf("Percentile(p=0) = %v, want 1", got)
	}
	if got := Percentile(vals, 100); got != 3 {
		t.Errorf("Percentile(p=100) = %v, want 3", got)
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(empty) = %v, want 0", got)
	}
}
