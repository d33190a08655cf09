// Package reconcile turns one work item into one report row.
//
// The Reconciler fetches both snapshots concurrently, downloads the two
// galleries when image checking is on, runs the text, image and video parity
// engines, optionally asks the PIM to re-export mismatched copy, and removes
// every per-item artifact before returning. It never fails: every problem is
// folded into the row and listed in Outcome.Problems.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"listingparity/internal/catalog"
	"listingparity/internal/fileutil"
	"listingparity/internal/imageparity"
	"listingparity/internal/logging"
	"listingparity/internal/report"
	"listingparity/internal/services"
	"listingparity/internal/snapshot"
	"listingparity/internal/staging"
	"listingparity/internal/textparity"
	"listingparity/internal/videoparity"
	"listingparity/internal/worklist"
)

const (
	imagesDisabledDetail = "Image check disabled"
	stagingFailedDetail  = "Image staging failed"
)

// Options are the per-run toggles and locations.
type Options struct {
	Images bool
	Videos bool
	Export bool
	// ApprovedStatus is the PIM label that allows the gallery to be compared.
	ApprovedStatus string
	StagingDir     string
	// UploadDir receives <id>.zip for every item whose gallery differs.
	UploadDir string
}

// Outcome is the row plus what happened along the way.
type Outcome struct {
	Result   report.ComparisonResult
	Text     textparity.Result
	Gallery  *imageparity.GalleryResult
	Problems []error
	// SavedGallery is the upload copy of the PIM archive, if one was made.
	SavedGallery string
	Exported     bool
}

// Degraded reports whether any step failed.
func (o Outcome) Degraded() bool {
	return len(o.Problems) > 0
}

// Reconciler compares items one at a time. It holds the two source adapters
// for the lifetime of a run and is not safe for concurrent Reconcile calls.
type Reconciler struct {
	marketplace snapshot.MarketplaceSource
	pim         snapshot.PIMSource
	catalog     *catalog.Catalog
	images      *imageparity.Comparer
	opts        Options
	logger      *slog.Logger
}

// New builds a reconciler.
func New(marketplace snapshot.MarketplaceSource, pim snapshot.PIMSource, cat *catalog.Catalog, opts Options, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		marketplace: marketplace,
		pim:         pim,
		catalog:     cat,
		images:      imageparity.NewComparer(logger),
		opts:        opts,
		logger:      logging.NewComponentLogger(logger, "reconcile"),
	}
}

// sideA and sideB are what each fetch task hands back to the comparison.
type sideA struct {
	snap     snapshot.ProductSnapshot
	problems []error
}

type sideB struct {
	snap     snapshot.ProductSnapshot
	archive  snapshot.Archive
	problems []error
}

// Reconcile produces the row for item. first marks the first item of a run.
func (r *Reconciler) Reconcile(ctx context.Context, item worklist.WorkItem, first bool) Outcome {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("reconciling item",
		logging.Int("index", item.Index),
		logging.String(logging.FieldEventType, "item_started"),
	)

	var out Outcome
	var ws *staging.Workspace
	if r.opts.Images {
		var err error
		ws, err = staging.NewWorkspace(r.opts.StagingDir, item.ID)
		if err != nil {
			out.Problems = append(out.Problems, services.Wrap(services.ErrDownload, "staging", "workspace", "create item workspace", err))
			logging.WarnWithContext(logger, "item workspace unavailable", "workspace_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions and free space"),
				logging.String(logging.FieldImpact, "images marked DIFFER for this item"),
			)
		} else {
			defer ws.Release(logger)
		}
	}

	a, b := r.fetch(ctx, item, first, ws)
	out.Problems = append(out.Problems, a.problems...)
	out.Problems = append(out.Problems, b.problems...)

	out.Text = textparity.Compare(a.snap.Title, a.snap.Bullets, b.snap.Title, b.snap.Bullets)
	if out.Text.Mismatch() {
		logger.Info("copy differs",
			logging.String("title", string(out.Text.Title)),
			logging.Float64("title_similarity", out.Text.TitleSimilarity),
			logging.Int("first_bullet_mismatch", out.Text.FirstBulletMismatch),
			logging.String(logging.FieldEventType, "text_mismatch"),
		)
	}
	images, imagesDetail := r.compareImages(ctx, &out, ws, a.snap, b)
	video := r.compareVideos(a.snap, b.snap)

	out.Result = report.ComparisonResult{
		ID:           item.ID,
		Title:        string(out.Text.Title),
		Bullets:      string(out.Text.Bullets),
		Images:       images,
		Status:       b.snap.Status,
		HasManual:    a.snap.HasManual,
		StoreCorrect: a.snap.StoreCorrect,
		Video:        string(video.Verdict),
		VideoDetail:  video.Detail,
		ImagesDetail: imagesDetail,
	}

	if r.opts.Export && out.Text.Mismatch() {
		out.Exported = r.export(ctx, item)
	}

	logger.Info("item reconciled",
		logging.String("title", out.Result.Title),
		logging.String("bullets", out.Result.Bullets),
		logging.String("images", out.Result.Images),
		logging.String("video", out.Result.Video),
		logging.Int("problems", len(out.Problems)),
		logging.String(logging.FieldEventType, "item_completed"),
	)
	return out
}

// fetch runs the two source tasks side by side. Neither task can fail the
// other: each recovers its own panics and reports problems by value.
func (r *Reconciler) fetch(ctx context.Context, item worklist.WorkItem, first bool, ws *staging.Workspace) (sideA, sideB) {
	var (
		a sideA
		b sideB
		g errgroup.Group
	)
	g.Go(func() error {
		a = r.fetchMarketplace(services.WithSource(ctx, string(snapshot.SourceMarketplace)), item, first, ws)
		return nil
	})
	g.Go(func() error {
		b = r.fetchPIM(services.WithSource(ctx, string(snapshot.SourcePIM)), item, ws)
		return nil
	})
	_ = g.Wait()
	return a, b
}

func (r *Reconciler) fetchMarketplace(ctx context.Context, item worklist.WorkItem, first bool, ws *staging.Workspace) (out sideA) {
	defer func() {
		if rec := recover(); rec != nil {
			out = sideA{
				snap:     snapshot.Degraded(snapshot.SourceMarketplace),
				problems: []error{services.Wrap(services.ErrExtraction, "marketplace", "fetch", fmt.Sprintf("panic: %v", rec), nil)},
			}
		}
	}()

	res := r.marketplace.FetchSnapshot(ctx, item.SourceA, first)
	out.snap = res.Settle(snapshot.SourceMarketplace)
	if res.Err != nil {
		out.problems = append(out.problems, res.Err)
		r.logFetchFailure(ctx, res.Err)
		return out
	}
	if ws == nil || len(out.snap.ImageURLs) == 0 {
		return out
	}
	manifest, err := r.marketplace.DownloadImages(ctx, item.ID, out.snap.ImageURLs, ws.MarketplaceDir)
	if err != nil {
		out.problems = append(out.problems, err)
	}
	out.snap.Images = manifest
	return out
}

func (r *Reconciler) fetchPIM(ctx context.Context, item worklist.WorkItem, ws *staging.Workspace) (out sideB) {
	defer func() {
		if rec := recover(); rec != nil {
			out = sideB{
				snap:     snapshot.Degraded(snapshot.SourcePIM),
				problems: []error{services.Wrap(services.ErrExtraction, "pim", "fetch", fmt.Sprintf("panic: %v", rec), nil)},
			}
		}
	}()

	res := r.pim.FetchSnapshot(ctx, item.SourceB)
	out.snap = res.Settle(snapshot.SourcePIM)
	if res.Err != nil {
		out.problems = append(out.problems, res.Err)
		r.logFetchFailure(ctx, res.Err)
		return out
	}
	if ws == nil || !r.approved(out.snap.Status) {
		return out
	}
	archive, err := r.pim.DownloadGalleryArchive(ctx, item.ID, ws.PIMDir)
	if archive.ZipPath != "" {
		ws.Track(archive.ZipPath)
	}
	if err != nil {
		out.problems = append(out.problems, err)
		msg := "gallery archive unavailable"
		if errors.Is(err, services.ErrTimeout) {
			msg = "gallery archive timed out"
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), msg, "archive_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise pim.archive_timeout_seconds or check the download folder"),
			logging.String(logging.FieldImpact, "gallery compared against an empty PIM folder"),
		)
		return out
	}
	out.archive = archive
	return out
}

func (r *Reconciler) logFetchFailure(ctx context.Context, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "snapshot unavailable, using placeholder", "snapshot_degraded",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.String(logging.FieldErrorHint, "open the locator in a browser to confirm it still resolves"),
		logging.String(logging.FieldImpact, "row carries NOT FOUND placeholders"),
	)
}

func (r *Reconciler) approved(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), strings.TrimSpace(r.opts.ApprovedStatus))
}

// compareImages renders the images verdict and detail. Galleries are only
// compared for approved PIM records; a differing gallery's archive is copied
// to the upload folder.
func (r *Reconciler) compareImages(ctx context.Context, out *Outcome, ws *staging.Workspace, a snapshot.ProductSnapshot, b sideB) (string, string) {
	switch {
	case !r.opts.Images:
		return string(textparity.Match), imagesDisabledDetail
	case ws == nil:
		return string(textparity.Differ), stagingFailedDetail
	case !r.approved(b.snap.Status):
		return string(textparity.Differ), fmt.Sprintf("PIM status %q, gallery not compared", b.snap.Status)
	}

	gallery, err := r.images.Compare(a.Images.Dir, b.archive.Dir)
	if err != nil {
		out.Problems = append(out.Problems, err)
		return string(textparity.Differ), "Image comparison failed"
	}
	out.Gallery = &gallery
	if gallery.Match {
		return string(textparity.Match), gallery.Detail
	}

	if b.archive.ZipPath != "" && r.opts.UploadDir != "" {
		dest := filepath.Join(r.opts.UploadDir, ws.ItemID+".zip")
		if err := fileutil.CopyFile(b.archive.ZipPath, dest); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to save gallery for upload", "gallery_save_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check upload_dir permissions"),
				logging.String(logging.FieldImpact, "gallery must be exported from the PIM by hand"),
			)
		} else {
			out.SavedGallery = dest
			logging.WithContext(ctx, r.logger).Info("gallery saved for upload",
				logging.String("path", dest),
				logging.String(logging.FieldEventType, "gallery_saved"),
			)
		}
	}
	return string(textparity.Differ), gallery.Detail
}

func (r *Reconciler) compareVideos(a, b snapshot.ProductSnapshot) videoparity.Result {
	if !r.opts.Videos {
		return videoparity.Disabled()
	}
	return videoparity.Compare(a.Videos.Count, a.Videos.Durations, b.Videos.Count, b.Videos.Durations)
}

// export asks the PIM to push its copy to the listing's marketplace. Failures
// are logged only.
func (r *Reconciler) export(ctx context.Context, item worklist.WorkItem) bool {
	logger := logging.WithContext(ctx, r.logger)
	domain := catalog.DomainOf(item.SourceA)
	locale, ok := r.catalog.ExportLocale(domain)
	if !ok {
		logger.Info("export skipped, marketplace not supported",
			logging.String("domain", domain),
			logging.String(logging.FieldEventType, "export_skipped"),
		)
		return false
	}
	if err := r.pim.RequestExport(ctx, item.SourceB, locale); err != nil {
		logging.WarnWithContext(logger, "export request failed", "export_failed",
			logging.String("locale", locale),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "trigger the export from the PIM record by hand"),
			logging.String(logging.FieldImpact, "listing copy stays out of date"),
		)
		return false
	}
	return true
}
