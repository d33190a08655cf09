package testsupport

import (
	"context"
	"testing"

	"listingparity/internal/config"
	"listingparity/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun records a running run for tests using the provided store.
func StartRun(t testing.TB, store *history.Store, id string, total int) history.Run {
	t.Helper()

	run := history.Run{ID: id, Worklist: "links.csv", ReportPath: "results.csv", Total: total}
	if err := store.StartRun(context.Background(), run); err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}
