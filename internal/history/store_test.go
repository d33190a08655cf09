package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"listingparity/internal/history"
	"listingparity/internal/report"
	"listingparity/internal/testsupport"
)

func matchRow(id string) report.ComparisonResult {
	return report.ComparisonResult{
		ID: id, Title: "MATCH", Bullets: "MATCH", Images: "MATCH", Status: "Approved",
		HasManual: true, StoreCorrect: true, Video: "Match",
		VideoDetail: "A:1 (0:30) | B:1 (0:30)", ImagesDetail: "3 Marketplace / 3 PIM, all MATCH",
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "run-1", 2)

	mismatch := matchRow("B0MISMATCH")
	mismatch.Bullets = "DIFFER"
	if err := store.RecordResult(ctx, "run-1", 0, matchRow("B0ALLMATCH")); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if err := store.RecordResult(ctx, "run-1", 1, mismatch); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", history.RunCompleted, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunCompleted || run.Completed != 2 || run.Mismatched != 1 || run.Total != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if !run.Finished() {
		t.Fatal("expected finished run")
	}

	all, err := store.Results(ctx, "run-1", false)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(all) != 2 || all[0].ID != "B0ALLMATCH" || all[1].ID != "B0MISMATCH" {
		t.Fatalf("unexpected results order: %+v", all)
	}
	if !all[0].HasManual || !all[0].StoreCorrect {
		t.Fatalf("booleans not round-tripped: %+v", all[0])
	}

	mismatches, err := store.Results(ctx, "run-1", true)
	if err != nil {
		t.Fatalf("Results mismatches: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Bullets != "DIFFER" {
		t.Fatalf("unexpected mismatches: %+v", mismatches)
	}
}

func TestFinishRunRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "run-failed", 5)
	if err := store.FinishRun(ctx, "run-failed", history.RunFailed, errors.New("login rejected")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err := store.GetRun(ctx, "run-failed")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunFailed || run.Error != "login rejected" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.RecordResult(ctx, "missing", 0, matchRow("X")); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "missing", history.RunCompleted, nil); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "abc-111", 1)
	testsupport.StartRun(t, store, "abc-222", 1)

	run, err := store.GetRun(ctx, "abc-1")
	if err != nil {
		t.Fatalf("GetRun prefix: %v", err)
	}
	if run.ID != "abc-111" {
		t.Fatalf("expected abc-111, got %s", run.ID)
	}
	if _, err := store.GetRun(ctx, "abc"); !errors.Is(err, history.ErrAmbiguousRun) {
		t.Fatalf("expected ErrAmbiguousRun, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		run := history.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), Worklist: "w", ReportPath: "r"}
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("started_at not round-tripped: %v", runs[0].StartedAt)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestMarkInterruptedAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "dangling", 3)
	if err := store.RecordResult(ctx, "dangling", 0, matchRow("A")); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	run, err := store.GetRun(ctx, "dangling")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunInterrupted || !run.Finished() {
		t.Fatalf("unexpected run after interrupt: %+v", run)
	}

	if _, err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs after clear, got %d", len(runs))
	}
	results, err := store.Results(ctx, "dangling", false)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after clear, got %d", len(results))
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := history.OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 999"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.OpenPath(ctx, path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
