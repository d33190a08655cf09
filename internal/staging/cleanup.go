package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"listingparity/internal/logging"
)

// CleanStaleResult lists what a cleanup pass removed and what it could not.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with the error that kept it on disk.
type CleanupError struct {
	Path  string
	Error error
}

func (r *CleanStaleResult) fail(path string, err error) {
	r.Errors = append(r.Errors, CleanupError{Path: path, Error: err})
}

// removeMatching deletes every entry of dir for which match returns true.
// A missing dir is not an error. The pass stops early when ctx ends.
func removeMatching(ctx context.Context, dir string, match func(os.DirEntry) (bool, error), onRemoveErr func(path string, err error)) CleanStaleResult {
	var result CleanStaleResult
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(dir, err)
		}
		return result
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir, entry.Name())
		ok, err := match(entry)
		if err != nil {
			result.fail(path, err)
			continue
		}
		if !ok {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.fail(path, err)
			onRemoveErr(path, err)
			continue
		}
		result.Removed = append(result.Removed, path)
	}
	return result
}

// CleanStale removes item workspaces older than maxAge, left behind by runs
// that were killed before their cleanup ran.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-maxAge)
	result := removeMatching(ctx, stagingDir,
		func(entry os.DirEntry) (bool, error) {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspacePrefix) {
				return false, nil
			}
			info, err := entry.Info()
			if err != nil {
				return false, err
			}
			return info.ModTime().Before(cutoff), nil
		},
		func(path string, err error) {
			logging.WarnWithContext(logger, "failed to remove stale workspace", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		},
	)
	if logger != nil && len(result.Removed) > 0 {
		logger.Info("removed stale workspaces",
			logging.String("path", stagingDir),
			logging.Int("removed", len(result.Removed)),
			logging.Duration("max_age", maxAge),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

// SweepDir empties dir without removing it. It is used for the shared
// download drop folder at the end of a run.
func SweepDir(ctx context.Context, dir string, logger *slog.Logger) CleanStaleResult {
	result := removeMatching(ctx, dir,
		func(os.DirEntry) (bool, error) { return true, nil },
		func(path string, err error) {
			logging.WarnWithContext(logger, "failed to sweep download entry", "download_sweep_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check download_dir permissions"),
				logging.String(logging.FieldImpact, "stale archives may be mistaken for new downloads"),
			)
		},
	)
	if logger != nil && len(result.Removed) > 0 {
		logger.Info("download folder swept",
			logging.String("path", dir),
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "download_sweep"),
		)
	}
	return result
}
