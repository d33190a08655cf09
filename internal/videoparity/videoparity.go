// Package videoparity reconciles promotional video sets by duration.
//
// Duration strings (m:ss) are the only identity available for a video, so two
// distinct videos sharing a duration are indistinguishable. Source B may carry
// the sentinels Unknown and Failed; either one makes the result a Warning.
package videoparity

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

const (
	// Unknown marks a video whose duration never became available.
	Unknown = "?:??"
	// Failed marks a video whose duration probe errored.
	Failed = "error"
)

// Verdict is the reconciliation outcome rendered in the report.
type Verdict string

const (
	Match      Verdict = "Match"
	NeedUpload Verdict = "Need upload"
	Warning    Verdict = "Warning"
)

// Result is the verdict plus the audit detail string.
type Result struct {
	Verdict Verdict
	Missing []string
	Detail  string
}

// FormatDuration renders whole seconds as m:ss. Non-positive or non-finite
// values yield Unknown.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return Unknown
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// IsSentinel reports whether d is Unknown or Failed.
func IsSentinel(d string) bool {
	return d == Unknown || d == Failed
}

// Disabled is the result recorded when video checking is off for the run.
func Disabled() Result {
	return Result{Verdict: Match, Detail: "Video check disabled"}
}

// Compare reconciles source B's durations against the set of source A's.
// Every known B duration must appear among A's durations for a Match.
func Compare(countA int, durationsA []string, countB int, durationsB []string) Result {
	setA := make(map[string]struct{}, len(durationsA))
	for _, d := range durationsA {
		setA[d] = struct{}{}
	}
	sortedA := make([]string, 0, len(setA))
	for d := range setA {
		sortedA = append(sortedA, d)
	}
	slices.Sort(sortedA)

	prefix := fmt.Sprintf("A:%d (%s) | B:%d (%s)",
		countA, strings.Join(sortedA, ", "), countB, strings.Join(durationsB, ", "))

	if slices.ContainsFunc(durationsB, IsSentinel) {
		return Result{
			Verdict: Warning,
			Detail:  prefix + " → WARNING: some PIM videos not loaded",
		}
	}

	missingSet := map[string]struct{}{}
	for _, d := range durationsB {
		if _, ok := setA[d]; !ok {
			missingSet[d] = struct{}{}
		}
	}
	if len(missingSet) == 0 {
		return Result{
			Verdict: Match,
			Detail:  prefix + " → All PIM videos present on marketplace",
		}
	}

	missing := make([]string, 0, len(missingSet))
	for d := range missingSet {
		missing = append(missing, d)
	}
	slices.Sort(missing)
	return Result{
		Verdict: NeedUpload,
		Missing: missing,
		Detail:  fmt.Sprintf("%s → Need upload: missing [%s]", prefix, strings.Join(missing, ", ")),
	}
}
