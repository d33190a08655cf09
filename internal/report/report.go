// Package report persists per-item comparison results as an append-only CSV.
//
// The header is written and flushed before any item is processed, and each
// row is flushed as soon as it is appended, so an interrupted run leaves a
// valid, truncated report.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"listingparity/internal/services"
)

// Header is the fixed column schema.
var Header = []string{
	"ID",
	"Title",
	"Bullets",
	"Images",
	"PIM Status",
	"User Manual",
	"Brand Store",
	"Video",
	"Video Details",
	"Images Details",
}

// Placeholder replaces empty fields so degraded values stay visible.
const Placeholder = "N/A"

// ComparisonResult is one item's verdict record. It is never mutated after
// it has been appended.
type ComparisonResult struct {
	ID           string
	Title        string
	Bullets      string
	Images       string
	Status       string
	HasManual    bool
	StoreCorrect bool
	Video        string
	VideoDetail  string
	ImagesDetail string
}

// Row renders the record in Header order.
func (r ComparisonResult) Row() []string {
	return []string{
		orPlaceholder(r.ID),
		orPlaceholder(r.Title),
		orPlaceholder(r.Bullets),
		orPlaceholder(r.Images),
		orPlaceholder(r.Status),
		yesNo(r.HasManual),
		yesNo(r.StoreCorrect),
		orPlaceholder(r.Video),
		orPlaceholder(r.VideoDetail),
		orPlaceholder(r.ImagesDetail),
	}
}

// AllMatch reports whether every verdict column is a match.
func (r ComparisonResult) AllMatch() bool {
	return r.Title == "MATCH" && r.Bullets == "MATCH" && r.Images == "MATCH" && r.Video == "Match"
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// Writer appends rows to a report file.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	csv  *csv.Writer
	rows int
}

// Create truncates path, writes the header, and flushes it to disk.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrSetup, "report", "create", "report directory", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "report", "create", path, err)
	}
	w := &Writer{path: path, file: file, csv: csv.NewWriter(file)}
	if err := w.write(Header); err != nil {
		file.Close()
		return nil, services.Wrap(services.ErrSetup, "report", "header", path, err)
	}
	return w, nil
}

// Path returns the report location.
func (w *Writer) Path() string { return w.path }

// Rows returns the number of data rows appended so far.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Append writes one result and flushes it.
func (w *Writer) Append(res ComparisonResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return errors.New("report writer closed")
	}
	if err := w.write(res.Row()); err != nil {
		return fmt.Errorf("append %s: %w", res.ID, err)
	}
	w.rows++
	return nil
}

func (w *Writer) write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := errors.Join(w.csv.Error(), w.file.Close())
	w.file = nil
	return err
}
