package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listingparity/internal/notifications"
	"listingparity/internal/testsupport"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "setup"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	if err := svc.NotifyRunStarted(ctx, 12); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyRunCompleted(ctx, notifications.RunStats{Processed: 12, Duration: 90 * time.Second}); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyRunCompleted(ctx, notifications.RunStats{Processed: 12, Mismatched: 3, Duration: time.Minute, ReportPath: "/tmp/r.csv"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyError(ctx, errors.New("login rejected"), "session setup"); err != nil {
		t.Fatal(err)
	}

	want := []captured{
		{title: "Parity - Run Started", message: "Comparing 12 listings", tags: "parity,run,started"},
		{title: "Parity - Run Complete", message: "All 12 listings match (1m30s)", tags: "parity,run,completed"},
		{title: "Parity - Run Complete (mismatches)", message: "3 of 12 listings differ from the PIM (1m0s)\nReport: /tmp/r.csv", tags: "parity,run,completed,warning"},
		{title: "Parity - Error", message: "Run failed during session setup: login rejected", tags: "parity,error,alert", priority: "high"},
	}
	if len(*got) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(*got))
	}
	for i, w := range want {
		if (*got)[i] != w {
			t.Fatalf("request %d = %+v, want %+v", i, (*got)[i], w)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
