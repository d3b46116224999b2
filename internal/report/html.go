package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"

	"github.com/NodePath81/sirius/internal/stats"
)

const reportTemplate = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>API Performance Report</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    body { font-family: system-ui, -apple-system, 'Segoe UI', Roboto, 'Helvetica Neue', Arial; margin: 20px; }
    .summary { margin-bottom: 20px; }
    table.summary-table { border-collapse: collapse; width: 100%; max-width: 900px; }
    table.summary-table td, table.summary-table th { border: 1px solid #ddd; padding: 8px; }
    .links { margin: 12px 0; }
    .chart { max-width: 900px; height: 360px; }
  </style>
</head>
<body>
  <h1>API Performance Report</h1>
  <div class="summary">
    <h2>Summary</h2>
    <table class="summary-table">
{{- range .SummaryRows }}
      <tr><th>{{ .Key }}</th><td>{{ .Value }}</td></tr>
{{- end }}
    </table>
  </div>
  <div class="links">
    <strong>Downloads:</strong>
{{- if .Links }}
{{- range .Links }}
    <a href="{{ . }}" download>{{ . }}</a>
{{- end }}
{{- else }}
    None
{{- end }}
  </div>
  <div class="chart">
    <canvas id="tsChart"></canvas>
  </div>
  <script>
    const TIMESERIES = {{ .TimeseriesJSON }};
    const ctx = document.getElementById('tsChart').getContext('2d');
    const labels = TIMESERIES.map(e => e.second);
    const rps = TIMESERIES.map(e => e.requests_per_second);
    const avg = TIMESERIES.map(e => e.count === 0 ? NaN : e.avg_latency_ms);
    new Chart(ctx, {
      data: {
        labels: labels,
        datasets: [
          { type: 'bar', label: 'Requests/sec', data: rps, yAxisID: 'y' },
          { type: 'line', label: 'Avg latency (ms)', data: avg, yAxisID: 'y1',
            borderColor: 'rgb(220, 80, 80)', backgroundColor: 'rgba(220,80,80,0.1)' }
        ]
      },
      options: {
        responsive: true,
        interaction: { mode: 'index', intersect: false },
        scales: {
          y: { position: 'left', title: { display: true, text: 'Requests/sec' } },
          y1: { position: 'right', title: { display: true, text: 'Avg latency (ms)' },
                grid: { drawOnChartArea: false } }
        }
      }
    });
  </script>
</body>
</html>
`

type summaryRow struct {
	Key   string
	Value string
}

type reportData struct {
	SummaryRows    []summaryRow
	Links          []string
	TimeseriesJSON template.JS
}

// WriteHTMLReport writes a self-contained report page: summary table,
// embedded timeseries chart, and download links for the sibling export
// files (referenced by base name, as the originals sit next to the report).
func WriteHTMLReport(path string, sum stats.Summary, buckets []stats.Bucket, siblings []string) error {
	if buckets == nil {
		buckets = []stats.Bucket{}
	}
	tsJSON, err := json.Marshal(buckets)
	if err != nil {
		return fmt.Errorf("encode timeseries: %w", err)
	}

	rows, err := summaryRows(sum)
	if err != nil {
		return err
	}
	links := make([]string, 0, len(siblings))
	for _, s := range siblings {
		if s != "" {
			links = append(links, filepath.Base(s))
		}
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, reportData{
		SummaryRows:    rows,
		Links:          links,
		TimeseriesJSON: template.JS(tsJSON),
	}); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func summaryRows(sum stats.Summary) ([]summaryRow, error) {
	data, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("flatten summary: %w", err)
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("flatten summary: %w", err)
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]summaryRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, summaryRow{Key: k, Value: string(flat[k])})
	}
	return rows, nil
}
