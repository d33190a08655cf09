// Package textparity compares title and bullet copy between two snapshots.
//
// Comparison is exact equality after textutil.Normalize. Bullets are compared
// positionally: a reordering is a difference even when the sets are equal.
package textparity

import "listingparity/internal/textutil"

// Verdict is the binary outcome of a text comparison.
type Verdict string

const (
	Match  Verdict = "MATCH"
	Differ Verdict = "DIFFER"
)

func verdictOf(ok bool) Verdict {
	if ok {
		return Match
	}
	return Differ
}

// Result carries the two verdicts plus diagnostics for logging.
type Result struct {
	Title   Verdict
	Bullets Verdict

	// FirstBulletMismatch is the index of the first differing bullet, or -1.
	// A length mismatch with an equal common prefix reports the shorter length.
	FirstBulletMismatch int
	TitleSimilarity     float64
}

// Mismatch reports whether title or bullets differ.
func (r Result) Mismatch() bool {
	return r.Title != Match || r.Bullets != Match
}

// Compare computes title and bullet verdicts for the given copy.
func Compare(titleA string, bulletsA []string, titleB string, bulletsB []string) Result {
	res := Result{FirstBulletMismatch: -1}

	titleOK := textutil.Equal(titleA, titleB)
	res.Title = verdictOf(titleOK)
	if !titleOK {
		res.TitleSimilarity = textutil.Similarity(titleA, titleB)
	} else {
		res.TitleSimilarity = 1
	}

	res.FirstBulletMismatch = firstMismatch(bulletsA, bulletsB)
	res.Bullets = verdictOf(res.FirstBulletMismatch < 0)
	return res
}

func firstMismatch(a, b []string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !textutil.Equal(a[i], b[i]) {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
