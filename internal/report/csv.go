package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/NodePath81/sirius/internal/ledger"
	"github.com/NodePath81/sirius/internal/stats"
)

var requestLogColumns = []string{
	"index", "start_epoch", "start_rel_s", "status", "ok",
	"time_s", "time_ms", "bytes", "error",
}

var timeseriesColumns = []string{
	"second", "start_epoch", "count", "successes", "failures",
	"requests_per_second", "avg_latency_s", "avg_latency_ms",
	"p50_s", "p50_ms", "p90_s", "p90_ms", "status_counts",
}

// WriteRequestLogCSV writes one row per attempt, ordered by index.
func WriteRequestLogCSV(path string, records []ledger.Record) error {
	sorted := make([]ledger.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	return writeCSV(path, requestLogColumns, func(w *csv.Writer) error {
		for _, rec := range sorted {
			status := ""
			if rec.Status != nil {
				status = strconv.Itoa(*rec.Status)
			}
			row := []string{
				strconv.Itoa(rec.Index),
				formatFloat(rec.StartEpoch),
				formatFloat(rec.StartRelS),
				status,
				strconv.FormatBool(rec.OK),
				formatFloat(rec.TimeS),
				formatFloat(stats.RoundMs(rec.TimeS)),
				strconv.FormatInt(rec.Bytes, 10),
				rec.Error,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSummaryCSV writes a one-row summary with columns sorted by name;
// status_counts is JSON-encoded into its cell.
func WriteSummaryCSV(path string, sum stats.Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("flatten summary: %w", err)
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("flatten summary: %w", err)
	}
	columns := make([]string, 0, len(flat))
	for k := range flat {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return writeCSV(path, columns, func(w *csv.Writer) error {
		row := make([]string, len(columns))
		for i, col := range columns {
			raw := flat[col]
			if col == "status_counts" {
				row[i] = string(raw)
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				row[i] = s
			} else {
				row[i] = string(raw)
			}
		}
		return w.Write(row)
	})
}

// WriteTimeseriesCSV writes one row per second bucket in the fixed column
// order of the published contract.
func WriteTimeseriesCSV(path string, buckets []stats.Bucket) error {
	return writeCSV(path, timeseriesColumns, func(w *csv.Writer) error {
		for _, b := range buckets {
			counts, err := json.Marshal(b.StatusCounts)
			if err != nil {
				return err
			}
			row := []string{
				strconv.Itoa(b.Second),
				formatFloat(b.StartEpoch),
				strconv.Itoa(b.Count),
				strconv.Itoa(b.Successes),
				strconv.Itoa(b.Failures),
				strconv.Itoa(b.RequestsPerSecond),
				formatFloat(b.AvgLatencyS),
				formatFloat(b.AvgLatencyMs),
				formatFloat(b.P50S),
				formatFloat(b.P50Ms),
				formatFloat(b.P90S),
				formatFloat(b.P90Ms),
				string(counts),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := body(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
