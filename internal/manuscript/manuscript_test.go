package manuscript

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/inkhouse/copydesk/internal/db"
)

func TestApplyUpsertPreservesAnalysisState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	doc := NewDocument("ms-1")
	doc.ApplyUpsert("one two three", Metadata{Title: "Draft"}, now)

	doc.StageResults = append(doc.StageResults, StageResult{AgentName: "grammar", Stage: 2, Confidence: 0.9})
	doc.Continuity.Merge(LedgerDelta{
		Characters: map[string]CharacterRecord{"Mira": {FirstMention: "chapter 1"}},
	})
	doc.LastRequestIDs["compliance"] = "req-123456"

	later := now.Add(time.Hour)
	doc.ApplyUpsert("a revised draft with more words now", Metadata{Title: "Draft v2", Genre: "mystery"}, later)

	if doc.Metadata.Title != "Draft v2" || doc.Metadata.Genre != "mystery" {
		t.Errorf("metadata not updated: %+v", doc.Metadata)
	}
	if doc.Metadata.WordCount != 7 {
		t.Errorf("word count not recomputed: %d", doc.Metadata.WordCount)
	}
	if !doc.Metadata.CreatedAt.Equal(now) {
		t.Errorf("created-at should survive upserts: %v", doc.Metadata.CreatedAt)
	}
	if !doc.Metadata.LastModified.Equal(later) {
		t.Errorf("last-modified not updated: %v", doc.Metadata.LastModified)
	}

	if len(doc.StageResults) != 1 {
		t.Errorf("stage results must survive upserts, got %d", len(doc.StageResults))
	}
	if _, ok := doc.Continuity.Characters["Mira"]; !ok {
		t.Error("continuity ledger must survive upserts")
	}
	if doc.LastRequestIDs["compliance"] != "req-123456" {
		t.Error("request id bookkeeping must survive upserts")
	}
}

func TestLedgerMergeAppendsNotReplaces(t *testing.T) {
	ledger := NewLedger()
	ledger.Merge(LedgerDelta{
		Characters: map[string]CharacterRecord{
			"Mira": {FirstMention: "chapter 1", Appearances: []string{"chapter 1"}, Aliases: []string{"M."}},
		},
		Locations: map[string]LocationRecord{
			"Harrowgate": {FirstMention: "chapter 1", Descriptions: []string{"a fog-bound port"}},
		},
		Timeline: []TimelineEvent{{Event: "storm hits", Chapter: "1"}},
		Terminology: map[string]TermRecord{
			"wyrd-lamp": {Definition: "a lantern that burns without fuel"},
		},
	})

	ledger.Merge(LedgerDelta{
		Characters: map[string]CharacterRecord{
			"Mira": {Appearances: []string{"chapter 3"}, Aliases: []string{"M.", "the navigator"}},
			"Tomas": {FirstMention: "chapter 2"},
		},
		Locations: map[string]LocationRecord{
			"Harrowgate": {Descriptions: []string{"rebuilt after the storm"}},
		},
		Timeline: []TimelineEvent{
			{Event: "storm hits", Chapter: "1"}, // duplicate, must not re-append
			{Event: "harbor rebuilt", Chapter: "4"},
		},
		Terminology: map[string]TermRecord{
			"wyrd-lamp": {Variants: []string{"wyrdlamp"}},
		},
	})

	mira := ledger.Characters["Mira"]
	if mira.FirstMention != "chapter 1" {
		t.Errorf("first mention overwritten: %q", mira.FirstMention)
	}
	if len(mira.Appearances) != 2 {
		t.Errorf("appearances should append: %v", mira.Appearances)
	}
	if len(mira.Aliases) != 2 {
		t.Errorf("aliases should append without duplicates: %v", mira.Aliases)
	}
	if _, ok := ledger.Characters["Tomas"]; !ok {
		t.Error("new character not inserted")
	}

	if got := len(ledger.Locations["Harrowgate"].Descriptions); got != 2 {
		t.Errorf("descriptions should append: %d", got)
	}

	if len(ledger.Timeline) != 2 {
		t.Errorf("duplicate timeline event re-appended: %v", ledger.Timeline)
	}

	lamp := ledger.Terminology["wyrd-lamp"]
	if lamp.Definition == "" || len(lamp.Variants) != 1 {
		t.Errorf("terminology merge wrong: %+v", lamp)
	}
}

func TestWorkflowMarkCompleted(t *testing.T) {
	var w WorkflowState
	for _, s := range []int{3, 1, 3, 2} {
		w.MarkCompleted(s)
	}
	want := []int{1, 2, 3}
	if len(w.StagesCompleted) != len(want) {
		t.Fatalf("expected %v, got %v", want, w.StagesCompleted)
	}
	for i := range want {
		if w.StagesCompleted[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, w.StagesCompleted)
		}
	}
}

func TestMemoryRepositoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	doc := NewDocument("ms-1")
	doc.Content = "original"
	if err := repo.Put(ctx, doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's copy must not touch stored state.
	doc.Content = "mutated"

	got, err := repo.Get(ctx, "ms-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "original" {
		t.Errorf("repository leaked caller mutation: %q", got.Content)
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown id, got %+v", missing)
	}
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	repo := NewSQLiteRepository(database)

	doc := NewDocument("ms-9")
	doc.ApplyUpsert("some manuscript text", Metadata{Title: "Nine"}, time.Now().UTC())
	doc.LastRequestIDs["compliance"] = "req-abcdef"
	if err := repo.Put(ctx, doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "ms-9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored manuscript")
	}
	if got.Metadata.Title != "Nine" || got.LastRequestIDs["compliance"] != "req-abcdef" {
		t.Errorf("round trip lost data: %+v", got)
	}

	ids, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "ms-9" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestLockManagerSerializesSameID(t *testing.T) {
	lm := NewLockManager()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := lm.Lock("ms-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("lost updates under the per-document lock: %d", counter)
	}
}

func TestRecordOutcomeInitializesMaps(t *testing.T) {
	// Documents decoded from older snapshots can carry nil maps.
	doc := &Document{ID: "ms-1"}
	doc.RecordOutcome("compliance", RunReport{
		RequestID:         "req-000001",
		Results:           []StageResult{{Stage: 1, Confidence: 0.9}},
		OverallConfidence: 0.9,
	})

	if doc.LastRequestIDs["compliance"] != "req-000001" {
		t.Errorf("request id = %q", doc.LastRequestIDs["compliance"])
	}
	stored, ok := doc.LastReports["compliance"]
	if !ok || stored.OverallConfidence != 0.9 || len(stored.Results) != 1 {
		t.Errorf("stored report = %+v", stored)
	}
}

func TestValidRequestID(t *testing.T) {
	if ValidRequestID("short") {
		t.Error("5-char request id should be rejected")
	}
	if !ValidRequestID("req-123456") {
		t.Error("valid request id rejected")
	}
}
