// Package ledger holds the append-only store of per-request outcomes for a
// single run. The ledger is the only mutable state shared between dispatch
// workers; everything downstream (summary, timeseries, exporters) consumes
// immutable snapshots of it.
package ledger

import "sync"

// Record is the outcome of one request attempt. A record carries either a
// Status (an HTTP response was received, including 4xx/5xx) or an Error
// (transport or timeout failure before a response), never both. Field names
// follow the published export contract.
type Record struct {
	Index      int     `json:"index"`
	StartEpoch float64 `json:"start_epoch"`
	StartRelS  float64 `json:"start_rel_s"`
	Status     *int    `json:"status"`
	OK         bool    `json:"ok"`
	TimeS      float64 `json:"time_s"`
	Bytes      int64   `json:"bytes"`
	Error      string  `json:"error,omitempty"`
}

// HasStatus reports whether an HTTP response was observed for this attempt.
func (r Record) HasStatus() bool {
	return r.Status != nil
}

// Ledger collects records in arrival order. Append is safe for concurrent
// use; records are never mutated or removed once appended.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

func New(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{records: make([]Record, 0, capacity)}
}

func (l *Ledger) Append(rec Record) {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Snapshot returns a copy of the records appended so far. A snapshot taken
// mid-run is a valid input to the statistics and timeseries engines.
func (l *Ledger) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}
