// Package app orchestrates one load run: validate the config, dispatch the
// requests, derive statistics, then hand the results to the exporters, the
// optional live-progress server and the optional history store.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NodePath81/sirius/internal/client"
	"github.com/NodePath81/sirius/internal/config"
	"github.com/NodePath81/sirius/internal/control"
	"github.com/NodePath81/sirius/internal/dispatch"
	"github.com/NodePath81/sirius/internal/history"
	"github.com/NodePath81/sirius/internal/ledger"
	"github.com/NodePath81/sirius/internal/report"
	"github.com/NodePath81/sirius/internal/stats"
	"github.com/NodePath81/sirius/internal/util"
)

type Options struct {
	Config    *config.RunConfig
	H2C       bool
	Listen    string
	HistoryDB string
	Exports   report.Paths
	Logger    util.Logger
}

// Outcome is everything a run produced.
type Outcome struct {
	RunID     string
	Records   []ledger.Record
	Summary   stats.Summary
	Buckets   []stats.Bucket
	Duration  time.Duration
	Cancelled bool
}

// Run executes a load run end to end. The config must already carry its
// final values (the CLI applies defaults before calling); anything
// non-positive or malformed is rejected here, before any request is sent.
// After dispatch starts, a cancelled or fully failed run still yields a
// usable Outcome.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	// Work on a copy; the caller's options stay untouched.
	cfg := *opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger()
	}
	runID := uuid.New().String()

	var ctrl *control.Server
	if opts.Listen != "" {
		ctrl = control.NewServer(opts.Listen, logger)
		if err := ctrl.Start(); err != nil {
			return nil, err
		}
		defer ctrl.Stop()
	}

	doer := client.New(client.Options{H2C: opts.H2C})
	dispatcher := dispatch.New(cfg.Spec(), doer, cfg.Requests, cfg.Concurrency, logger)
	if ctrl != nil {
		dispatcher.OnProgress = func(p dispatch.Progress) {
			ctrl.PublishProgress(runID, p.Completed, p.Total, p.Elapsed)
		}
	}

	started := time.Now()
	res := dispatcher.Run(ctx)
	records := res.Ledger.Snapshot()

	outcome := &Outcome{
		RunID:     runID,
		Records:   records,
		Summary:   stats.Summarize(records, res.Duration.Seconds()),
		Buckets:   stats.Timeseries(records),
		Duration:  res.Duration,
		Cancelled: res.Cancelled,
	}
	if ctrl != nil {
		ctrl.PublishSummary(runID, outcome.Summary, res.Duration)
	}

	if err := writeExports(opts.Exports, outcome, logger); err != nil {
		return outcome, err
	}

	if opts.HistoryDB != "" {
		saveHistory(opts.HistoryDB, cfg, started, outcome, logger)
	}
	return outcome, nil
}

func writeExports(paths report.Paths, out *Outcome, logger util.Logger) error {
	if !paths.Any() {
		return nil
	}
	totalTime := out.Duration.Seconds()
	if paths.SummaryJSON != "" {
		// embed the timeseries unless it gets its own file
		var embedded []stats.Bucket
		if paths.TimeseriesJSON == "" {
			embedded = out.Buckets
		}
		if err := report.WriteSummaryJSON(paths.SummaryJSON, out.Summary, totalTime, embedded); err != nil {
			return err
		}
		logger.Info("summary written", "path", paths.SummaryJSON)
	}
	if paths.RequestLogCSV != "" {
		if err := report.WriteRequestLogCSV(paths.RequestLogCSV, out.Records); err != nil {
			return err
		}
		logger.Info("request log written", "path", paths.RequestLogCSV)
	}
	if paths.TimeseriesJSON != "" {
		if err := report.WriteTimeseriesJSON(paths.TimeseriesJSON, out.Buckets, totalTime); err != nil {
			return err
		}
		logger.Info("timeseries written", "path", paths.TimeseriesJSON)
	}
	if paths.SummaryCSV != "" {
		if err := report.WriteSummaryCSV(paths.SummaryCSV, out.Summary); err != nil {
			return err
		}
		logger.Info("summary csv written", "path", paths.SummaryCSV)
	}
	if paths.TimeseriesCSV != "" {
		if err := report.WriteTimeseriesCSV(paths.TimeseriesCSV, out.Buckets); err != nil {
			return err
		}
		logger.Info("timeseries csv written", "path", paths.TimeseriesCSV)
	}
	if paths.HTMLReport != "" {
		siblings := []string{
			paths.SummaryJSON, paths.SummaryCSV,
			paths.TimeseriesJSON, paths.TimeseriesCSV, paths.RequestLogCSV,
		}
		if err := report.WriteHTMLReport(paths.HTMLReport, out.Summary, out.Buckets, siblings); err != nil {
			return err
		}
		logger.Info("html report written", "path", paths.HTMLReport)
	}
	return nil
}

// saveHistory is best-effort: a broken history database never fails the run
// that produced the data.
func saveHistory(path string, cfg config.RunConfig, started time.Time, out *Outcome, logger util.Logger) {
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.SaveRun(out.RunID, cfg, started, out.Summary, out.Records); err != nil {
		logger.Warn("history save failed", "error", err)
		return
	}
	logger.Info("run saved to history", "db", path, "run_id", out.RunID)
}
