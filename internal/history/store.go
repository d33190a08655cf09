package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"listingparity/internal/config"
	"listingparity/internal/report"
)

// ErrRunNotFound is returned when no run matches an identifier.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an identifier prefix matches several runs.
var ErrAmbiguousRun = errors.New("run identifier is ambiguous")

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var runColumns = []string{
	"id", "started_at", "finished_at", "worklist", "report_path",
	"total", "completed", "mismatched", "status", "error",
}

var resultColumns = []string{
	"item_id", "title", "bullets", "images", "pim_status",
	"has_manual", "store_correct", "video", "video_detail", "images_detail",
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the history database under the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), cfg.HistoryPath())
}

// OpenPath connects to (and if needed creates) the database at path.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records a new run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("start run: empty run id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "worklist", "report_path", "total", "status").
		Values(run.ID, formatTime(run.StartedAt), run.Worklist, run.ReportPath, run.Total, string(run.Status)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordResult mirrors one appended report row and advances the run counters.
func (s *Store) RecordResult(ctx context.Context, runID string, position int, result report.ComparisonResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	allMatch := result.AllMatch()
	update := sq.Update("runs").
		Set("completed", sq.Expr("completed + 1")).
		Where(sq.Eq{"id": runID})
	if !allMatch {
		update = update.Set("mismatched", sq.Expr("mismatched + 1"))
	}
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build run counters: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	columns := append([]string{"run_id", "position"}, resultColumns...)
	columns = append(columns, "all_match", "recorded_at")
	query, args, err = sq.Insert("results").
		Columns(columns...).
		Values(
			runID, position,
			result.ID, result.Title, result.Bullets, result.Images, result.Status,
			boolToInt(result.HasManual), boolToInt(result.StoreCorrect),
			result.Video, result.VideoDetail, result.ImagesDetail,
			boolToInt(allMatch), formatTime(time.Now()),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build result insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	return nil
}

// FinishRun stamps the end time and terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, runErr error) error {
	var errText any
	if runErr != nil {
		errText = runErr.Error()
	}
	query, args, err := sq.Update("runs").
		Set("finished_at", formatTime(time.Now())).
		Set("status", string(status)).
		Set("error", errText).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run finish: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	builder := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run list: %w", err)
	}
	return s.queryRuns(ctx, query, args...)
}

// GetRun resolves a run by full identifier or unique prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrRunNotFound)
	}
	query, args, err := sq.Select(runColumns...).From("runs").
		Where(sq.Or{sq.Eq{"id": idOrPrefix}, sq.Like{"id": idOrPrefix + "%"}}).
		OrderBy("started_at DESC").
		Limit(2).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run lookup: %w", err)
	}
	runs, err := s.queryRuns(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case len(runs) > 1 && runs[0].ID != idOrPrefix && runs[1].ID != idOrPrefix:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
	for _, run := range runs {
		if run.ID == idOrPrefix {
			return &run, nil
		}
	}
	return &runs[0], nil
}

// Results returns the recorded rows of a run in report order.
func (s *Store) Results(ctx context.Context, runID string, mismatchesOnly bool) ([]report.ComparisonResult, error) {
	builder := sq.Select(resultColumns...).From("results").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position", "id")
	if mismatchesOnly {
		builder = builder.Where(sq.Eq{"all_match": 0})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build result list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []report.ComparisonResult
	for rows.Next() {
		var (
			r                       report.ComparisonResult
			hasManual, storeCorrect int
		)
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Bullets, &r.Images, &r.Status,
			&hasManual, &storeCorrect, &r.Video, &r.VideoDetail, &r.ImagesDetail,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.HasManual = hasManual != 0
		r.StoreCorrect = storeCorrect != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// MarkInterrupted closes out runs that never finished, e.g. after a crash.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	query, args, err := sq.Update("runs").
		Set("status", string(RunInterrupted)).
		Set("finished_at", formatTime(time.Now())).
		Where(sq.Eq{"status": string(RunRunning)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build interrupt update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every recorded run and its results.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM results"); err != nil {
		return 0, fmt.Errorf("clear results: %w", err)
	}
	query, args, err := sq.Delete("runs").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build clear: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                 Run
		started             string
		finished, errorText sql.NullString
		status              string
	)
	if err := rows.Scan(
		&run.ID, &started, &finished, &run.Worklist, &run.ReportPath,
		&run.Total, &run.Completed, &run.Mismatched, &status, &errorText,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	run.Status = RunStatus(status)
	run.Error = errorText.String
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
