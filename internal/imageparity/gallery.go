package imageparity

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/corona10/goimagehash"

	"listingparity/internal/logging"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// PairResult is the outcome for one base key.
type PairResult struct {
	BaseKey  string
	FileA    string
	FileB    string
	Distance int
	HasDist  bool
	Status   Status
}

// GalleryResult aggregates a gallery comparison.
type GalleryResult struct {
	CountA  int
	CountB  int
	Matched int
	Pairs   []PairResult
	Match   bool
	// Summary is "countA/countB".
	Summary string
	Detail  string
}

// Missing returns the number of keys present on only one side.
func (g GalleryResult) Missing() int {
	n := 0
	for _, p := range g.Pairs {
		if p.Status == StatusMissingA || p.Status == StatusMissingB {
			n++
		}
	}
	return n
}

// Comparer compares galleries and logs each pair.
type Comparer struct {
	logger *slog.Logger
	hash   func(path string) (*goimagehash.ImageHash, error)
}

// NewComparer builds a gallery comparer.
func NewComparer(logger *slog.Logger) *Comparer {
	return &Comparer{
		logger: logging.NewComponentLogger(logger, "imageparity"),
		hash:   HashFile,
	}
}

// CompareGalleries compares two folders with a no-op logger.
func CompareGalleries(folderA, folderB string) (GalleryResult, error) {
	return NewComparer(nil).Compare(folderA, folderB)
}

// Compare pairs the images of folderA and folderB by base key and scores each
// pair. The gallery matches only when both folders hold the same number of
// images, no key is missing from either side, and every pair matches.
//
// A missing folderB yields a non-matching result with detail "PIM folder
// missing"; a missing folderA is treated as an empty gallery. An error is
// returned only when a folder exists but cannot be listed.
func (c *Comparer) Compare(folderA, folderB string) (GalleryResult, error) {
	if !dirExists(folderB) {
		c.logger.Info("pim gallery missing")
		return GalleryResult{Summary: "0/0", Detail: "PIM folder missing"}, nil
	}

	filesA, err := listImages(folderA)
	if err != nil {
		return GalleryResult{}, err
	}
	filesB, err := listImages(folderB)
	if err != nil {
		return GalleryResult{}, err
	}

	keys := make([]string, 0, len(filesA)+len(filesB))
	for key := range filesA {
		keys = append(keys, key)
	}
	for key := range filesB {
		if _, ok := filesA[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	res := GalleryResult{CountA: len(filesA), CountB: len(filesB)}
	for _, key := range keys {
		nameA, okA := filesA[key]
		nameB, okB := filesB[key]
		pair := PairResult{BaseKey: key, FileA: nameA, FileB: nameB}
		switch {
		case okA && okB:
			c.scorePair(&pair, filepath.Join(folderA, nameA), filepath.Join(folderB, nameB))
			if pair.Status == StatusMatch {
				res.Matched++
			}
		case okA:
			pair.Status = StatusMissingB
			c.logger.Info("image missing in pim", logging.String("file", nameA))
		default:
			pair.Status = StatusMissingA
			c.logger.Info("image missing on marketplace", logging.String("file", nameB))
		}
		res.Pairs = append(res.Pairs, pair)
	}

	res.Summary = fmt.Sprintf("%d/%d", res.CountA, res.CountB)
	res.Match, res.Detail = aggregate(res)
	c.logger.Info("gallery compared",
		logging.String("summary", res.Summary),
		logging.Bool("match", res.Match),
		logging.String("detail", res.Detail),
	)
	return res, nil
}

func (c *Comparer) scorePair(pair *PairResult, pathA, pathB string) {
	hashA, errA := c.hash(pathA)
	hashB, errB := c.hash(pathB)
	if err := errors.Join(errA, errB); err != nil {
		pair.Status = StatusError
		c.logger.Info("image hash failed",
			logging.String("file_a", pair.FileA),
			logging.String("file_b", pair.FileB),
			logging.Error(err),
		)
		return
	}
	dist, err := Distance(hashA, hashB)
	if err != nil {
		pair.Status = StatusError
		c.logger.Info("image distance failed", logging.String("key", pair.BaseKey), logging.Error(err))
		return
	}
	pair.Distance = dist
	pair.HasDist = true
	pair.Status = PairVerdict(dist)
	c.logger.Info("image pair compared",
		logging.String("file_a", pair.FileA),
		logging.String("file_b", pair.FileB),
		logging.Int("distance", dist),
		logging.String("verdict", string(pair.Status)),
	)
}

func aggregate(res GalleryResult) (bool, string) {
	pairs := 0
	for _, p := range res.Pairs {
		if p.Status != StatusMissingA && p.Status != StatusMissingB {
			pairs++
		}
	}
	mismatched := pairs - res.Matched
	missing := res.Missing()
	head := fmt.Sprintf("%d Marketplace / %d PIM", res.CountA, res.CountB)

	switch {
	case res.CountA != res.CountB:
		return false, fmt.Sprintf("%s, Different q-ty, %d Mismatch", head, mismatched)
	case mismatched == 0 && missing == 0:
		return true, head + ", all MATCH"
	case missing > 0:
		return false, fmt.Sprintf("%s, %d Match, %d Mismatch, %d Missing", head, res.Matched, mismatched, missing)
	default:
		return false, fmt.Sprintf("%s, %d Match, %d Mismatch", head, res.Matched, mismatched)
	}
}

func listImages(dir string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(dir) == "" {
		return out, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("list images in %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !slices.Contains(imageExtensions, ext) {
			continue
		}
		out[strings.TrimSuffix(name, filepath.Ext(name))] = name
	}
	return out, nil
}

func dirExists(dir string) bool {
	if strings.TrimSpace(dir) == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
