package fileutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWaitTimeout is returned when no matching file appeared in time.
var ErrWaitTimeout = errors.New("timed out waiting for file")

// partialSuffixes mark files that are still being written.
var partialSuffixes = []string{".part", ".crdownload", ".tmp"}

// MatchFunc selects candidate file names.
type MatchFunc func(name string) bool

// HasExtension matches complete files with the given extension.
func HasExtension(ext string) MatchFunc {
	ext = strings.ToLower(ext)
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, suffix := range partialSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return false
			}
		}
		return strings.HasSuffix(lower, ext)
	}
}

// WaitForFile blocks until dir holds a file accepted by match whose
// modification time is not before since, and returns the newest such file.
// It watches dir with fsnotify instead of polling and gives up after timeout.
func WaitForFile(ctx context.Context, dir string, since time.Time, timeout time.Duration, match MatchFunc) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create watch dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return "", fmt.Errorf("watch %s: %w", dir, err)
	}

	// The file may have landed before the watch was armed.
	if found := newestMatch(dir, since, match); found != "" {
		return found, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", fmt.Errorf("%w: %s after %s", ErrWaitTimeout, dir, timeout)
		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed for %s", dir)
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if found := newestMatch(dir, since, match); found != "" {
				return found, nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed for %s", dir)
			}
			return "", fmt.Errorf("watch %s: %w", dir, werr)
		}
	}
}

func newestMatch(dir string, since time.Time, match MatchFunc) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(since) {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}
