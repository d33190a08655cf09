// Package staging manages the per-item scratch space of a run and the sweeps
// that keep the staging and download folders from accumulating leftovers.
package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"listingparity/internal/logging"
	"listingparity/internal/textutil"
)

// workspacePrefix marks directories CleanStale is allowed to remove.
const workspacePrefix = "item-"

// Workspace is the item-scoped directory tree holding downloaded marketplace
// images, the extracted PIM gallery, and any tracked archive files.
type Workspace struct {
	ItemID         string
	Root           string
	MarketplaceDir string
	PIMDir         string

	mu       sync.Mutex
	tracked  []string
	released bool
}

// NewWorkspace creates a fresh workspace for itemID under stagingDir,
// discarding anything a previous crashed run left at the same location.
func NewWorkspace(stagingDir, itemID string) (*Workspace, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, errors.New("staging dir not configured")
	}
	root := filepath.Join(stagingDir, workspacePrefix+textutil.SanitizeToken(itemID))
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("reset workspace %s: %w", root, err)
	}
	ws := &Workspace{
		ItemID:         itemID,
		Root:           root,
		MarketplaceDir: filepath.Join(root, "marketplace"),
		PIMDir:         filepath.Join(root, "pim"),
	}
	for _, dir := range []string{ws.MarketplaceDir, ws.PIMDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir: %w", err)
		}
	}
	return ws, nil
}

// Track registers an artifact outside Root that Release must also remove.
func (w *Workspace) Track(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked = append(w.tracked, path)
}

// Release removes the workspace and every tracked artifact. Repeated calls
// are no-ops. Failures are logged and returned, never fatal.
func (w *Workspace) Release(logger *slog.Logger) []CleanupError {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true

	var errs []CleanupError
	for _, path := range append(w.tracked, w.Root) {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove item artifact", "staging_cleanup_failed",
				logging.String("path", path),
				logging.String(logging.FieldItemID, w.ItemID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	w.tracked = nil
	return errs
}
