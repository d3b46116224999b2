package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NodePath81/sirius/internal/app"
	"github.com/NodePath81/sirius/internal/config"
	"github.com/NodePath81/sirius/internal/history"
	"github.com/NodePath81/sirius/internal/report"
	"github.com/NodePath81/sirius/internal/util"
	"github.com/NodePath81/sirius/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sirius",
	Short: "Concurrent HTTP load tester",
	Long: `sirius fires N copies of one HTTP request at bounded concurrency,
records every attempt, and reports latency and throughput statistics.

Examples:
  sirius -u https://api.example.com/health
  sirius -u https://api.example.com/users -n 500 -c 25
  sirius -u https://api.example.com/users -m POST -b '{"name":"x"}' -H "Authorization: Bearer t"
  sirius --config scenario.yaml --summary-export summary.json --html-report report.html`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <scenario.yaml>",
	Short: "Validate a scenario file without sending requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s %s, %d requests, concurrency %d, timeout %s)\n",
			args[0], cfg.Method, cfg.URL, cfg.Requests, cfg.Concurrency, cfg.Timeout.Duration())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs stored in the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHistoryDB == "" {
			return fmt.Errorf("--history-db is required")
		}
		store, err := history.Open(flagHistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.ListRuns(flagHistoryLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "no runs recorded")
			return nil
		}
		for _, run := range runs {
			fmt.Fprintf(w, "%s  %s  %-6s %s  n=%d c=%d  ok=%d fail=%d  avg=%.1fms p95=%.1fms\n",
				run.ID,
				run.StartedAt.Format(time.RFC3339),
				run.Method, run.URL,
				run.Requests, run.Concurrency,
				run.Summary.SuccessfulRequests, run.Summary.FailedRequests,
				run.Summary.MeanMs, run.Summary.P95Ms)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run's summary and optionally re-export its request log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHistoryDB == "" {
			return fmt.Errorf("--history-db is required")
		}
		store, err := history.Open(flagHistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.Run(args[0])
		if err != nil {
			return err
		}
		report.PrintSummary(cmd.OutOrStdout(), run.Summary)
		if flagShowRequestLog != "" {
			records, err := store.Records(run.ID)
			if err != nil {
				return err
			}
			if err := report.WriteRequestLogCSV(flagShowRequestLog, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request log written to %s\n", flagShowRequestLog)
		}
		return nil
	},
}

var (
	flagURL         string
	flagMethod      string
	flagBody        string
	flagHeaders     []string
	flagRequests    int
	flagConcurrency int
	flagTimeout     time.Duration
	flagConfigFile  string

	flagSummaryJSON   string
	flagRequestLog    string
	flagTimeseries    string
	flagSummaryCSV    string
	flagTimeseriesCSV string
	flagHTMLReport    string

	flagHistoryDB      string
	flagHistoryLimit   int
	flagShowRequestLog string
	flagListen         string
	flagH2C            bool
	flagQuiet          bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagURL, "url", "u", "", "Target URL")
	f.StringVarP(&flagMethod, "method", "m", "", "HTTP method (default GET, or POST with --body)")
	f.StringVarP(&flagBody, "body", "b", "", "Request body; JSON bodies default Content-Type to application/json")
	f.StringArrayVarP(&flagHeaders, "header", "H", nil, "Request header \"Key: Value\", can be repeated")
	f.IntVarP(&flagRequests, "requests", "n", 0, fmt.Sprintf("Total number of requests (default %d)", config.DefaultRequests))
	f.IntVarP(&flagConcurrency, "concurrency", "c", 0, fmt.Sprintf("Maximum concurrent requests (default %d)", config.DefaultConcurrency))
	f.DurationVarP(&flagTimeout, "timeout", "t", 0, fmt.Sprintf("Per-request timeout (default %s)", config.DefaultTimeout))
	f.StringVar(&flagConfigFile, "config", "", "YAML scenario file; flags override its fields")

	f.StringVar(&flagSummaryJSON, "summary-export", "", "Write the summary as JSON to this path")
	f.StringVar(&flagRequestLog, "request-log", "", "Write the per-request log as CSV to this path")
	f.StringVar(&flagTimeseries, "timeseries-export", "", "Write the per-second timeseries as JSON to this path")
	f.StringVar(&flagSummaryCSV, "summary-csv", "", "Write the summary as a one-row CSV to this path")
	f.StringVar(&flagTimeseriesCSV, "timeseries-csv", "", "Write the per-second timeseries as CSV to this path")
	f.StringVar(&flagHTMLReport, "html-report", "", "Write a self-contained HTML report to this path")

	f.StringVar(&flagListen, "listen", "", "Serve live progress on this address (e.g. :8080)")
	f.BoolVar(&flagH2C, "h2c", false, "Use HTTP/2 cleartext instead of HTTP/1.1")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")

	rootCmd.PersistentFlags().StringVar(&flagHistoryDB, "history-db", "", "SQLite database for run history")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum runs to list")
	historyShowCmd.Flags().StringVar(&flagShowRequestLog, "request-log", "", "Re-export the stored per-request log as CSV to this path")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(checkCmd, historyCmd)
}

func buildConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	// An explicit non-positive flag is a user error; only an unset flag
	// falls through to the defaults.
	if cmd.Flags().Changed("requests") && flagRequests <= 0 {
		return nil, fmt.Errorf("requests must be >= 1, got %d", flagRequests)
	}
	if cmd.Flags().Changed("concurrency") && flagConcurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", flagConcurrency)
	}
	if cmd.Flags().Changed("timeout") && flagTimeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", flagTimeout)
	}

	cfg := &config.RunConfig{}
	if flagConfigFile != "" {
		loaded, err := config.Load(flagConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("url") {
		cfg.URL = flagURL
	}
	if cmd.Flags().Changed("method") {
		cfg.Method = flagMethod
	}
	if cmd.Flags().Changed("body") {
		cfg.Body = flagBody
	}
	if cmd.Flags().Changed("requests") {
		cfg.Requests = flagRequests
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = flagConcurrency
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = config.Duration(flagTimeout)
	}
	for _, line := range flagHeaders {
		hdr, err := config.ParseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		cfg.Headers.Set(hdr.Key, hdr.Value)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func runLoad(cmd *cobra.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := util.NewLogger()
	if flagQuiet {
		logger = util.NewQuietLogger()
	}

	// SIGINT stops submitting new requests; in-flight attempts finish and
	// the partial run is still reported in full.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := app.Run(ctx, app.Options{
		Config:    cfg,
		H2C:       flagH2C,
		Listen:    flagListen,
		HistoryDB: flagHistoryDB,
		Logger:    logger,
		Exports: report.Paths{
			SummaryJSON:    flagSummaryJSON,
			RequestLogCSV:  flagRequestLog,
			TimeseriesJSON: flagTimeseries,
			SummaryCSV:     flagSummaryCSV,
			TimeseriesCSV:  flagTimeseriesCSV,
			HTMLReport:     flagHTMLReport,
		},
	})
	if err != nil {
		return err
	}
	if out.Cancelled {
		logger.Warn("run interrupted", "completed", len(out.Records), "requested", cfg.Requests)
	}
	if flagSummaryJSON == "" {
		report.PrintSummary(cmd.OutOrStdout(), out.Summary)
	}
	return nil
}
