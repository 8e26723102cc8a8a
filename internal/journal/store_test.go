package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Time: base, RunID: "run-a", PID: 100, Level: 255, Decision: "engage"},
		{Time: base.Add(time.Minute), RunID: "run-a", PID: 100, Level: 0, Decision: "disengage"},
		{Time: base.Add(2 * time.Minute), RunID: "run-a", PID: 100, Level: 255, Decision: "engage"},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	if !recent[0].Time.Equal(base.Add(2*time.Minute)) || recent[0].Level != 255 {
		t.Fatalf("newest entry = %+v", recent[0])
	}
	if recent[1].Decision != "disengage" || recent[1].RunID != "run-a" || recent[1].PID != 100 {
		t.Fatalf("second entry = %+v", recent[1])
	}
}

func TestRecentZeroLimit(t *testing.T) {
	store := openTestStore(t)
	entries, err := store.Recent(context.Background(), 0)
	if err != nil || entries != nil {
		t.Fatalf("Recent(0) = %v, %v", entries, err)
	}
}

func TestRecordDefaultsTime(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	if err := store.Record(ctx, Entry{RunID: "r", Level: 10, Decision: "disengage"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recent, err := store.Recent(ctx, 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent = %v, %v", recent, err)
	}
	if recent[0].Time.Before(before) {
		t.Fatalf("timestamp not defaulted: %v", recent[0].Time)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Record(ctx, Entry{Time: cutoff.Add(-time.Hour), RunID: "old", Decision: "engage"})
	_ = store.Record(ctx, Entry{Time: cutoff.Add(-500 * time.Millisecond), RunID: "old", Decision: "engage"})
	_ = store.Record(ctx, Entry{Time: cutoff.Add(time.Hour), RunID: "new", Decision: "disengage"})

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d entries, want 2", removed)
	}
	recent, _ := store.Recent(ctx, 10)
	if len(recent) != 1 || recent[0].RunID != "new" {
		t.Fatalf("remaining = %+v", recent)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Record(ctx, Entry{RunID: "r1", Level: 255, Decision: "engage"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	first.Close()

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	recent, err := second.Recent(ctx, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent after reopen = %v, %v", recent, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
