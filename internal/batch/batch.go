package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"listingparity/internal/catalog"
	"listingparity/internal/config"
	"listingparity/internal/history"
	"listingparity/internal/logging"
	"listingparity/internal/notifications"
	"listingparity/internal/preflight"
	"listingparity/internal/reconcile"
	"listingparity/internal/report"
	"listingparity/internal/services"
	"listingparity/internal/staging"
	"listingparity/internal/worklist"
)

// staleWorkspaceAge is how old an item workspace must be before the end-of-run
// sweep treats it as abandoned.
const staleWorkspaceAge = time.Hour

// Orchestrator runs work lists against a fixed configuration.
type Orchestrator struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	sources  SourceFactory
	notifier notifications.Service
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSources replaces the network-backed sources.
func WithSources(f SourceFactory) Option {
	return func(o *Orchestrator) { o.sources = f }
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithNotifier replaces the ntfy notifier built from the configuration.
func WithNotifier(n notifications.Service) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// New builds an orchestrator. The marketplace catalog is loaded here so a
// broken override fails before any run starts.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("batch requires a configuration")
	}
	cat, err := catalog.Load(cfg.Marketplace.CatalogPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "catalog", "load marketplace catalog", err)
	}
	o := &Orchestrator{
		cfg:      cfg,
		catalog:  cat,
		notifier: notifications.NewService(cfg),
		observer: NopObserver{},
		logger:   logging.NewComponentLogger(logger, "batch"),
		now:      time.Now,
	}
	o.sources = NetworkSources(cfg, cat, logger)
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run processes the configured work list. Setup failures are returned before
// the report is touched. Once items are being processed the only error
// returned is the context's, after the run has been recorded as interrupted.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	started := o.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	items, err := o.loadWorklist()
	if err != nil {
		return RunSummary{}, o.setupFailed(ctx, err)
	}
	if err := o.prepare(ctx); err != nil {
		return RunSummary{}, o.setupFailed(ctx, err)
	}

	lock := flock.New(o.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return RunSummary{}, o.setupFailed(ctx, services.Wrap(services.ErrSetup, "batch", "lock", "acquire run lock", err))
	}
	if !locked {
		return RunSummary{}, o.setupFailed(ctx, services.Wrap(services.ErrSetup, "batch", "lock",
			fmt.Sprintf("another parity run holds %s", o.cfg.LockPath()), nil))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "delete the lock file if no run is active"),
				logging.String(logging.FieldImpact, "next run may refuse to start"),
			)
		}
	}()

	store, err := history.Open(o.cfg)
	if err != nil {
		return RunSummary{}, o.setupFailed(ctx, services.Wrap(services.ErrSetup, "batch", "history", "open run history", err))
	}
	defer store.Close()
	if n, err := store.MarkInterrupted(ctx); err != nil {
		logger.Warn("failed to mark abandoned runs", logging.Error(err),
			logging.String(logging.FieldEventType, "history_recover_failed"),
			logging.String(logging.FieldErrorHint, "run 'parity history list' to inspect"),
			logging.String(logging.FieldImpact, "stale runs still shown as running"),
		)
	} else if n > 0 {
		logger.Info("marked abandoned runs as interrupted",
			logging.Int("runs", int(n)),
			logging.String(logging.FieldEventType, "history_recovered"),
		)
	}

	sources, closeSources, err := o.sources(ctx)
	if err != nil {
		if !services.IsFatal(err) {
			err = services.Wrap(services.ErrSetup, "batch", "sessions", "open source sessions", err)
		}
		return RunSummary{}, o.setupFailed(ctx, err)
	}
	defer closeSources()

	writer, err := report.Create(o.cfg.Paths.ReportPath)
	if err != nil {
		return RunSummary{}, o.setupFailed(ctx, err)
	}
	defer writer.Close()

	summary := RunSummary{
		RunID:      runID,
		ReportPath: writer.Path(),
		Started:    started,
		Total:      len(items),
		Status:     history.RunRunning,
	}
	if err := store.StartRun(ctx, history.Run{
		ID:         runID,
		StartedAt:  started,
		Worklist:   o.cfg.Paths.WorklistPath,
		ReportPath: writer.Path(),
		Total:      len(items),
		Status:     history.RunRunning,
	}); err != nil {
		return RunSummary{}, o.setupFailed(ctx, services.Wrap(services.ErrSetup, "batch", "history", "record run start", err))
	}

	logger.Info("run started",
		logging.Int("items", len(items)),
		logging.String("report", writer.Path()),
		logging.Bool("images", o.cfg.Checks.Images),
		logging.Bool("videos", o.cfg.Checks.Videos),
		logging.Bool("export", o.cfg.Checks.Export),
		logging.String(logging.FieldEventType, "run_started"),
	)
	o.observer.RunStarted(runID, len(items))
	o.notify(ctx, func(ctx context.Context) error { return o.notifier.NotifyRunStarted(ctx, len(items)) })

	reconciler := reconcile.New(sources.Marketplace, sources.PIM, o.catalog, reconcile.Options{
		Images:         o.cfg.Checks.Images,
		Videos:         o.cfg.Checks.Videos,
		Export:         o.cfg.Checks.Export,
		ApprovedStatus: o.cfg.PIM.ApprovedStatus,
		StagingDir:     o.cfg.Paths.StagingDir,
		UploadDir:      o.cfg.Paths.UploadDir,
	}, o.logger)

	runErr := o.process(ctx, items, reconciler, writer, store, &summary)

	// Cleanup and bookkeeping must happen even when ctx was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	o.sweep(finishCtx)

	summary.Duration = o.now().Sub(started)
	switch {
	case runErr == nil:
		summary.Status = history.RunCompleted
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		summary.Status = history.RunInterrupted
	default:
		summary.Status = history.RunFailed
	}
	if err := store.FinishRun(finishCtx, runID, summary.Status, runErr); err != nil {
		logger.Warn("failed to record run end", logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "check state_dir free space"),
			logging.String(logging.FieldImpact, "history shows the run as running"),
		)
	}

	logger.Info("run finished",
		logging.String("status", string(summary.Status)),
		logging.Int("processed", summary.Processed),
		logging.Int("mismatched", summary.Mismatched),
		logging.Int("degraded", summary.Degraded),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	o.observer.RunFinished(summary)
	if runErr == nil {
		o.notify(finishCtx, func(ctx context.Context) error {
			return o.notifier.NotifyRunCompleted(ctx, notifications.RunStats{
				Processed:  summary.Processed,
				Mismatched: summary.Mismatched,
				Duration:   summary.Duration,
				ReportPath: summary.ReportPath,
			})
		})
	} else {
		o.notify(finishCtx, func(ctx context.Context) error { return o.notifier.NotifyError(ctx, runErr, "run") })
	}
	return summary, runErr
}

func (o *Orchestrator) loadWorklist() ([]worklist.WorkItem, error) {
	items, err := worklist.Load(o.cfg.Paths.WorklistPath, worklist.Columns{
		SourceA: o.cfg.Worklist.SourceAColumn,
		SourceB: o.cfg.Worklist.SourceBColumn,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrSetup, "batch", "worklist",
			fmt.Sprintf("no rows in %s", o.cfg.Paths.WorklistPath), nil)
	}
	return items, nil
}

// prepare validates credentials, creates directories and runs preflight.
func (o *Orchestrator) prepare(ctx context.Context) error {
	if err := o.cfg.ValidateCredentials(); err != nil {
		return services.Wrap(services.ErrConfiguration, "batch", "credentials", "", err)
	}
	if err := o.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrSetup, "batch", "directories", "", err)
	}
	if failed := preflight.Failed(preflight.RunAll(ctx, o.cfg)); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return services.Wrap(services.ErrSetup, "batch", "preflight", strings.Join(parts, "; "), nil)
	}
	return nil
}

// process reconciles items in order. It stops early only when ctx ends or
// the report can no longer be written.
func (o *Orchestrator) process(ctx context.Context, items []worklist.WorkItem, reconciler *reconcile.Reconciler, writer *report.Writer, store *history.Store, summary *RunSummary) error {
	logger := logging.WithContext(ctx, o.logger)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			logging.WarnWithContext(logger, "run interrupted", "run_interrupted",
				logging.Int("processed", summary.Processed),
				logging.Int("remaining", len(items)-i),
				logging.String(logging.FieldErrorHint, "re-run the work list to finish the remaining items"),
				logging.String(logging.FieldImpact, "report is truncated"),
			)
			return err
		}

		outcome := reconciler.Reconcile(ctx, item, i == 0)
		if err := writer.Append(outcome.Result); err != nil {
			logging.ErrorWithContext(logger, "failed to append report row", "report_write_failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check report_path free space and permissions"),
				logging.String(logging.FieldImpact, "run stopped; report ends before this item"),
			)
			return err
		}
		if err := store.RecordResult(context.WithoutCancel(ctx), summary.RunID, i+1, outcome.Result); err != nil {
			logger.Warn("failed to record result in history", logging.Error(err),
				logging.String(logging.FieldItemID, item.ID),
				logging.String(logging.FieldEventType, "history_write_failed"),
				logging.String(logging.FieldErrorHint, "the CSV report is still complete"),
				logging.String(logging.FieldImpact, "history for this run is partial"),
			)
		}

		summary.Processed = writer.Rows()
		summary.Rows = append(summary.Rows, outcome.Result)
		if !outcome.Result.AllMatch() {
			summary.Mismatched++
		}
		if outcome.Degraded() {
			summary.Degraded++
		}
		logger.Info("progress",
			logging.Int("position", i+1),
			logging.Int("total", len(items)),
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "item_progress"),
		)
		o.observer.ItemCompleted(i+1, len(items), outcome)
	}
	return nil
}

// sweep empties the download drop folder and removes abandoned workspaces.
func (o *Orchestrator) sweep(ctx context.Context) {
	swept := staging.SweepDir(ctx, o.cfg.Paths.DownloadDir, o.logger)
	stale := staging.CleanStale(ctx, o.cfg.Paths.StagingDir, staleWorkspaceAge, o.logger)
	if n := len(swept.Removed) + len(stale.Removed); n > 0 {
		o.logger.Debug("end of run sweep",
			logging.Int("downloads_removed", len(swept.Removed)),
			logging.Int("workspaces_removed", len(stale.Removed)),
		)
	}
}

func (o *Orchestrator) setupFailed(ctx context.Context, err error) error {
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "run setup failed", "setup_failed",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.String(logging.FieldErrorHint, "fix the condition above and re-run; no report was written"),
		logging.String(logging.FieldImpact, "no items processed"),
	)
	o.notify(ctx, func(ctx context.Context) error { return o.notifier.NotifyError(ctx, err, "setup") })
	return err
}

func (o *Orchestrator) notify(ctx context.Context, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		o.logger.Debug("notification failed", logging.Error(err))
	}
}
