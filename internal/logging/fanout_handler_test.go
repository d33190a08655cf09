package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var info, debug bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled when any handler accepts debug")
	}

	logger := slog.New(h)
	logger.Debug("probe detail")
	if info.Len() != 0 {
		t.Fatalf("info handler received debug record: %q", info.String())
	}
	if !strings.Contains(debug.String(), "probe detail") {
		t.Fatalf("debug handler missing record: %q", debug.String())
	}
}

func TestTeeLoggerCarriesAttrs(t *testing.T) {
	var a, b bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&a, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&b, nil)).With(String(FieldComponent, "batch"))
	logger.Info("row appended")

	for name, buf := range map[string]*bytes.Buffer{"base": &a, "tee": &b} {
		if !strings.Contains(buf.String(), `"component":"batch"`) {
			t.Fatalf("%s output missing component: %q", name, buf.String())
		}
	}
}
