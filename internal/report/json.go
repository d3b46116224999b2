package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/NodePath81/sirius/internal/stats"
)

type summaryDocument struct {
	Summary    stats.Summary  `json:"summary"`
	TotalTimeS float64        `json:"total_time_s"`
	Timeseries []stats.Bucket `json:"timeseries,omitempty"`
}

type timeseriesDocument struct {
	Timeseries []stats.Bucket `json:"timeseries"`
	TotalTimeS float64        `json:"total_time_s"`
}

// WriteSummaryJSON writes the summary export. buckets may be nil; when
// given, the timeseries is embedded so a single file carries the whole run.
func WriteSummaryJSON(path string, sum stats.Summary, totalTimeS float64, buckets []stats.Bucket) error {
	doc := summaryDocument{Summary: sum, TotalTimeS: totalTimeS, Timeseries: buckets}
	return writeJSON(path, doc)
}

func WriteTimeseriesJSON(path string, buckets []stats.Bucket, totalTimeS float64) error {
	if buckets == nil {
		buckets = []stats.Bucket{}
	}
	return writeJSON(path, timeseriesDocument{Timeseries: buckets, TotalTimeS: totalTimeS})
}

func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
