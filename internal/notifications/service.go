package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listingparity/internal/config"
)

const userAgent = "parity/1.0"

// RunStats summarizes a finished run for the completion message.
type RunStats struct {
	Processed  int
	Mismatched int
	Duration   time.Duration
	ReportPath string
}

// Service defines the notification surface used by the batch orchestrator.
type Service interface {
	NotifyRunStarted(ctx context.Context, items int) error
	NotifyRunCompleted(ctx context.Context, stats RunStats) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, items int) error {
	return n.send(ctx, payload{
		title:   "Parity - Run Started",
		message: fmt.Sprintf("Comparing %d listings", items),
		tags:    []string{"parity", "run", "started"},
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, stats RunStats) error {
	duration := max(stats.Duration.Round(time.Second), 0)

	data := payload{
		title: "Parity - Run Complete",
		tags:  []string{"parity", "run", "completed"},
	}
	if stats.Mismatched == 0 {
		data.message = fmt.Sprintf("All %d listings match (%s)", stats.Processed, duration)
	} else {
		data.title = "Parity - Run Complete (mismatches)"
		data.message = fmt.Sprintf("%d of %d listings differ from the PIM (%s)", stats.Mismatched, stats.Processed, duration)
		data.tags = append(data.tags, "warning")
	}
	if report := strings.TrimSpace(stats.ReportPath); report != "" {
		data.message += "\nReport: " + report
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Run failed")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "Parity - Error",
		message:  builder.String(),
		tags:     []string{"parity", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Parity - Test",
		message:  "Notification system test",
		tags:     []string{"parity", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int) error        { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunStats) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error   { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
