package history

import (
	"time"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// Run summarizes one batch execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Worklist   string
	ReportPath string
	Total      int
	Completed  int
	Mismatched int
	Status     RunStatus
	Error      string
}

// Finished reports whether the run recorded an end time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns the elapsed wall time, measured to now for running runs.
func (r Run) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	if r.StartedAt.IsZero() || end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}
