// Package worklist reads the matched pairs of source locators a run reconciles.
package worklist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"

	"listingparity/internal/services"
)

// WorkItem is one matched pair. ID is parsed from SourceA.
type WorkItem struct {
	Index   int
	ID      string
	SourceA string
	SourceB string
}

var (
	itemIDPattern = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

	sourceAAliases = []string{"amazon_url", "marketplace_url", "source_a_url"}
	sourceBAliases = []string{"icepim_url", "pim_url", "source_b_url"}
)

// ParseItemID extracts the product identifier from a listing locator, falling
// back to unknown_<index> (1-based) when none is present.
func ParseItemID(locator string, index int) string {
	if m := itemIDPattern.FindStringSubmatch(locator); m != nil {
		return m[1]
	}
	return fmt.Sprintf("unknown_%d", index)
}

// Columns names the header fields holding the two locators. Empty values fall
// back to the built-in aliases.
type Columns struct {
	SourceA string
	SourceB string
}

// Load reads the work list at path. A missing file or missing locator column
// is a setup failure.
func Load(path string, cols Columns) ([]WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrSetup, "worklist", "open", fmt.Sprintf("links file not found: %s", path), err)
		}
		return nil, services.Wrap(services.ErrSetup, "worklist", "open", path, err)
	}
	defer f.Close()
	return Read(f, cols)
}

// Read parses a work list from r.
func Read(r io.Reader, cols Columns) ([]WorkItem, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrSetup, "worklist", "header", "work list is empty", nil)
		}
		return nil, services.Wrap(services.ErrSetup, "worklist", "header", "", err)
	}

	idxA := findColumn(header, cols.SourceA, sourceAAliases)
	idxB := findColumn(header, cols.SourceB, sourceBAliases)
	if idxA < 0 || idxB < 0 {
		return nil, services.Wrap(services.ErrSetup, "worklist", "header",
			fmt.Sprintf("locator columns not found in %v", header), nil)
	}

	var items []WorkItem
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrSetup, "worklist", "row", "", err)
		}
		if isBlank(record) {
			continue
		}
		index := len(items) + 1
		a := field(record, idxA)
		items = append(items, WorkItem{
			Index:   index,
			ID:      ParseItemID(a, index),
			SourceA: a,
			SourceB: field(record, idxB),
		})
	}
	return items, nil
}

func findColumn(header []string, preferred string, aliases []string) int {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	candidates := aliases
	if p := strings.ToLower(strings.TrimSpace(preferred)); p != "" {
		candidates = append([]string{p}, aliases...)
	}
	for _, c := range candidates {
		if i := slices.Index(names, c); i >= 0 {
			return i
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf)), r)
}
