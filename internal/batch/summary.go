package batch

import (
	"time"

	"listingparity/internal/history"
	"listingparity/internal/reconcile"
	"listingparity/internal/report"
)

// RunSummary describes a finished (or interrupted) run.
type RunSummary struct {
	RunID      string
	ReportPath string
	Started    time.Time
	Duration   time.Duration
	Status     history.RunStatus

	Total      int
	Processed  int
	Mismatched int
	// Degraded counts items that hit at least one fetch, download or
	// comparison problem.
	Degraded int
	Rows     []report.ComparisonResult
}

// Observer receives progress callbacks. Calls are made from the goroutine
// running the orchestrator, in order.
type Observer interface {
	RunStarted(runID string, total int)
	ItemCompleted(position, total int, outcome reconcile.Outcome)
	RunFinished(summary RunSummary)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) RunStarted(string, int)                    {}
func (NopObserver) ItemCompleted(int, int, reconcile.Outcome) {}
func (NopObserver) RunFinished(RunSummary)                    {}
