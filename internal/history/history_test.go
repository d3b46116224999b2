package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/NodePath81/sirius/internal/config"
	"github.com/NodePath81/sirius/internal/ledger"
	"github.com/NodePath81/sirius/internal/stats"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndListRuns(t *testing.T) {
	store := openTestStore(t)

	s200 := 200
	records := []ledger.Record{
		{Index: 0, StartEpoch: 1000, StartRelS: 0, Status: &s200, OK: true, TimeS: 0.05, Bytes: 12},
		{Index: 1, StartEpoch: 1000.1, StartRelS: 0.1, Error: "timeout after 1s", TimeS: 1.0},
	}
	sum := stats.Summarize(records, 1.1)
	cfg := config.RunConfig{URL: "http://host/api", Method: "GET", Requests: 2, Concurrency: 2}
	started := time.Now().Truncate(time.Millisecond)

	id, err := store.SaveRun("", cfg, started, sum, records)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("SaveRun returned empty id")
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.URL != "http://host/api" || run.Requests != 2 {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", run.StartedAt, started)
	}
	if run.Summary.TotalRequests != 2 || run.Summary.FailedRequests != 1 {
		t.Errorf("summary did not round-trip: %+v", run.Summary)
	}
}

func TestRunByID(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveRun("", config.RunConfig{URL: "http://host/x", Method: "POST", Requests: 7, Concurrency: 3},
		time.Now(), stats.Summarize(nil, 0), nil)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, err := store.Run(id)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.ID != id || run.URL != "http://host/x" || run.Method != "POST" || run.Requests != 7 {
		t.Errorf("run = %+v", run)
	}

	if _, err := store.Run("no-such-id"); err == nil {
		t.Error("Run with unknown id: want error, got nil")
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	store := openTestStore(t)

	s404 := 404
	records := []ledger.Record{
		{Index: 1, StartEpoch: 2000.2, StartRelS: 0.2, Status: &s404, TimeS: 0.03, Bytes: 9},
		{Index: 0, StartEpoch: 2000.0, StartRelS: 0.0, Error: "connection refused", TimeS: 0.001},
	}
	id, err := store.SaveRun("", config.RunConfig{URL: "http://x", Method: "GET"}, time.Now(), stats.Summarize(records, 0.3), records)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.Records(id)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Records returned %d, want 2", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Error("records not index-ordered")
	}
	if got[0].Status != nil || got[0].Error != "connection refused" {
		t.Errorf("failure record did not round-trip: %+v", got[0])
	}
	if got[1].Status == nil || *got[1].Status != 404 || got[1].Bytes != 9 {
		t.Errorf("status record did not round-trip: %+v", got[1])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Now()
	for i := 0; i < 3; i++ {
		_, err := store.SaveRun("",
			config.RunConfig{URL: "http://x", Method: "GET"},
			base.Add(time.Duration(i)*time.Second),
			stats.Summarize(nil, 0), nil)
		if err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}
	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d, want limit 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("runs not ordered newest first")
	}
}
