// Package history persists completed runs to a local SQLite database so
// past results can be listed and re-exported. Saving is best-effort: a
// failure here never fails the run that produced the data.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NodePath81/sirius/internal/config"
	"github.com/NodePath81/sirius/internal/ledger"
	"github.com/NodePath81/sirius/internal/stats"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	url TEXT NOT NULL,
	method TEXT NOT NULL,
	requests INTEGER NOT NULL,
	concurrency INTEGER NOT NULL,
	summary TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL REFERENCES runs(id),
	idx INTEGER NOT NULL,
	start_epoch REAL NOT NULL,
	start_rel_s REAL NOT NULL,
	status INTEGER,
	ok INTEGER NOT NULL,
	time_s REAL NOT NULL,
	bytes INTEGER NOT NULL,
	error TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// Run is one stored run with its summary.
type Run struct {
	ID          string
	StartedAt   time.Time
	URL         string
	Method      string
	Requests    int
	Concurrency int
	Summary     stats.Summary
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its full ledger under the given id, generating
// one when the caller has none.
func (s *Store) SaveRun(id string, cfg config.RunConfig, started time.Time, sum stats.Summary, records []ledger.Record) (string, error) {
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, url, method, requests, concurrency, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, started.UnixMilli(), cfg.URL, cfg.Method, cfg.Requests, cfg.Concurrency, string(summaryJSON),
	)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO results (run_id, idx, start_epoch, start_rel_s, status, ok, time_s, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("save results: %w", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		var status any
		if rec.Status != nil {
			status = *rec.Status
		}
		if _, err := stmt.Exec(id, rec.Index, rec.StartEpoch, rec.StartRelS, status, rec.OK, rec.TimeS, rec.Bytes, rec.Error); err != nil {
			return "", fmt.Errorf("save result %d: %w", rec.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return id, nil
}

// Run loads one stored run by id.
func (s *Store) Run(id string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, url, method, requests, concurrency, summary
		 FROM runs WHERE id = ?`, id)
	var run Run
	var startedMs int64
	var summaryJSON string
	if err := row.Scan(&run.ID, &startedMs, &run.URL, &run.Method, &run.Requests, &run.Concurrency, &summaryJSON); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("no run with id %s", id)
		}
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	run.StartedAt = time.UnixMilli(startedMs)
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("decode summary for run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, url, method, requests, concurrency, summary
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedMs int64
		var summaryJSON string
		if err := rows.Scan(&run.ID, &startedMs, &run.URL, &run.Method, &run.Requests, &run.Concurrency, &summaryJSON); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedMs)
		if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
			return nil, fmt.Errorf("decode summary for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the stored ledger of one run, index-ordered.
func (s *Store) Records(runID string) ([]ledger.Record, error) {
	rows, err := s.db.Query(
		`SELECT idx, start_epoch, start_rel_s, status, ok, time_s, bytes, error
		 FROM results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		var status sql.NullInt64
		if err := rows.Scan(&rec.Index, &rec.StartEpoch, &rec.StartRelS, &status, &rec.OK, &rec.TimeS, &rec.Bytes, &rec.Error); err != nil {
			return nil, fmt.Errorf("load results: %w", err)
		}
		if status.Valid {
			code := int(status.Int64)
			rec.Status = &code
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
