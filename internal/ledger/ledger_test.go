package ledger

import (
	"sync"
	"testing"
)

func TestAppendConcurrent(t *testing.T) {
	const n = 200
	l := New(n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			l.Append(Record{Index: idx})
		}(i)
	}
	wg.Wait()

	if got := l.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}
	seen := make(map[int]bool, n)
	for _, rec := range l.Snapshot() {
		if seen[rec.Index] {
			t.Fatalf("index %d appended twice", rec.Index)
		}
		seen[rec.Index] = true
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			t.Fatalf("index %d missing", i)
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	l := New(2)
	l.Append(Record{Index: 0})
	snap := l.Snapshot()
	l.Append(Record{Index: 1})

	if len(snap) != 1 {
		t.Fatalf("snapshot length changed after append: %d", len(snap))
	}
	snap[0].Index = 99
	if l.Snapshot()[0].Index != 0 {
		t.Fatal("mutating a snapshot leaked into the ledger")
	}
}

func TestHasStatus(t *testing.T) {
	status := 503
	with := Record{Status: &status}
	without := Record{Error: "connection refused"}
	if !with.HasStatus() {
		t.Fatal("record with status should report HasStatus")
	}
	if without.HasStatus() {
		t.Fatal("record without status should not report HasStatus")
	}
}
