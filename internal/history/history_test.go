package history

import (
	"context"
	"testing"
	"time"

	"github.com/inkhouse/copydesk/internal/db"
	"github.com/inkhouse/copydesk/internal/pipeline"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndForManuscript(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := Record{
		ID:                "run-1",
		ManuscriptID:      "ms-1",
		Operation:         "compliance",
		RequestID:         "req-000001",
		OverallConfidence: 0.97,
		StagesRun:         8,
		DurationMS:        4200,
	}
	if err := store.Log(ctx, rec); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.ForManuscript(ctx, "ms-1", 10)
	if err != nil {
		t.Fatalf("ForManuscript: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Operation != "compliance" {
		t.Errorf("Operation = %q, want %q", got[0].Operation, "compliance")
	}
	if got[0].OverallConfidence != 0.97 {
		t.Errorf("OverallConfidence = %v, want 0.97", got[0].OverallConfidence)
	}
	if got[0].StagesRun != 8 {
		t.Errorf("StagesRun = %d, want 8", got[0].StagesRun)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Timestamp not populated")
	}
	if got[0].Failed() {
		t.Error("Failed() = true for a clean run")
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Record{ManuscriptID: "ms-1", Operation: "structural", RequestID: "req-000002"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.ForManuscript(ctx, "ms-1", 0)
	if err != nil {
		t.Fatalf("ForManuscript: %v", err)
	}
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("expected one record with a generated id, got %+v", got)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []Record{
		{ID: "a", ManuscriptID: "ms-1", Operation: "compliance", RequestID: "req-aaaaaa", Timestamp: base},
		{ID: "b", ManuscriptID: "ms-1", Operation: "structural", RequestID: "req-bbbbbb", Timestamp: base.Add(time.Hour)},
		{ID: "c", ManuscriptID: "ms-2", Operation: "compliance", RequestID: "req-cccccc", FailedStage: 2, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, rec := range seed {
		if err := store.Log(ctx, rec); err != nil {
			t.Fatalf("Log %s: %v", rec.ID, err)
		}
	}

	byOp, err := store.Query(ctx, Filter{Operation: "compliance"})
	if err != nil {
		t.Fatalf("Query by operation: %v", err)
	}
	if len(byOp) != 2 {
		t.Fatalf("got %d compliance records, want 2", len(byOp))
	}
	if byOp[0].ID != "c" {
		t.Errorf("newest first: got %q, want %q", byOp[0].ID, "c")
	}

	failed, err := store.Query(ctx, Filter{FailedOnly: true})
	if err != nil {
		t.Fatalf("Query failed only: %v", err)
	}
	if len(failed) != 1 || failed[0].FailedStage != 2 {
		t.Fatalf("failed filter returned %+v", failed)
	}

	since := base.Add(30 * time.Minute)
	recent, err := store.Query(ctx, Filter{Since: &since})
	if err != nil {
		t.Fatalf("Query since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d recent records, want 2", len(recent))
	}

	limited, err := store.Query(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d records, want 1", len(limited))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Log(ctx, Record{ID: "old", ManuscriptID: "ms-1", Operation: "compliance", RequestID: "req-dddddd", Timestamp: old}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := store.Log(ctx, Record{ID: "new", ManuscriptID: "ms-1", Operation: "compliance", RequestID: "req-eeeeee"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	deleted, err := store.DeleteBefore(ctx, old.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d records, want 1", deleted)
	}

	remaining, err := store.ForManuscript(ctx, "ms-1", 0)
	if err != nil {
		t.Fatalf("ForManuscript: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "new" {
		t.Fatalf("remaining = %+v, want only the new record", remaining)
	}
}

func TestRecordRunAdaptsPipelineRecord(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.RecordRun(ctx, pipeline.RunRecord{
		ManuscriptID:      "ms-1",
		Operation:         "stage:7",
		RequestID:         "req-ffffff",
		OverallConfidence: 0.91,
		StagesRun:         1,
		Duration:          1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := store.ForManuscript(ctx, "ms-1", 1)
	if err != nil {
		t.Fatalf("ForManuscript: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", got[0].DurationMS)
	}
	if got[0].Operation != "stage:7" {
		t.Errorf("Operation = %q, want %q", got[0].Operation, "stage:7")
	}
}
