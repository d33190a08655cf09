package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"listingparity/internal/reconcile"
	"listingparity/internal/report"
)

func outcomeFor(id string, images string, problems ...error) reconcile.Outcome {
	return reconcile.Outcome{
		Result: report.ComparisonResult{
			ID:      id,
			Title:   "MATCH",
			Bullets: "MATCH",
			Images:  images,
			Video:   "Match",
		},
		Problems: problems,
	}
}

func TestProgressObserverColorsVerdicts(t *testing.T) {
	var buf bytes.Buffer
	observer := &progressObserver{out: &buf, colorize: true}

	observer.ItemCompleted(1, 2, outcomeFor("B01", "MATCH"))
	observer.ItemCompleted(2, 2, outcomeFor("B02", "DIFFER", errors.New("archive timed out")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 progress lines, got %q", buf.String())
	}
	if !strings.HasSuffix(lines[0], "("+text.FgGreen.Sprint("ok")+")") {
		t.Fatalf("expected green ok verdict, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "("+text.FgRed.Sprint("mismatch, degraded")+")") {
		t.Fatalf("expected red mismatch verdict, got %q", lines[1])
	}
}

func TestProgressObserverPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	observer := &progressObserver{out: &buf}

	observer.ItemCompleted(1, 1, outcomeFor("B01", "DIFFER"))

	want := "[1/1] B01  title=MATCH bullets=MATCH images=DIFFER video=Match (mismatch)\n"
	if buf.String() != want {
		t.Fatalf("progress line = %q, want %q", buf.String(), want)
	}
}
