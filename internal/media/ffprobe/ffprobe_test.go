package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDurationSeconds(t *testing.T) {
	cases := []struct {
		name   string
		result Result
		want   float64
	}{
		{"container", Result{Format: Format{Duration: "90.5"}}, 90.5},
		{"stream fallback", Result{
			Format: Format{Duration: "N/A"},
			Streams: []Stream{
				{CodecType: "audio", Duration: "300"},
				{CodecType: "video", Duration: "42.0"},
				{CodecType: "video", Duration: "61.2"},
			},
		}, 61.2},
		{"nothing", Result{}, 0},
		{"garbage", Result{Format: Format{Duration: "bad"}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.DurationSeconds(); got != tc.want {
				t.Fatalf("DurationSeconds() = %v, want %v", got, tc.want)
			}
		})
	}
}

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestProberDurationFromStub(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"codec_type":"video"}],"format":{"duration":"75.0"}}'`)
	got, err := Prober{Binary: stub}.Duration(context.Background(), "https://pim.example/video.mp4", "Cookie: sid=1")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
}

func TestProberReportsFailure(t *testing.T) {
	stub := writeStub(t, "echo 'Server returned 404 Not Found' >&2\nexit 1\n")
	_, err := Prober{Binary: stub}.Probe(context.Background(), "https://pim.example/missing.mp4")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestProberTimeout(t *testing.T) {
	stub := writeStub(t, "exec sleep 5\n")
	start := time.Now()
	_, err := Prober{Binary: stub, Timeout: 100 * time.Millisecond}.Probe(context.Background(), "/tmp/video.mp4")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout not enforced, took %s", time.Since(start))
	}
}

func TestProberRejectsEmptyTarget(t *testing.T) {
	if _, err := (Prober{}).Probe(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty target")
	}
}
