// Package session owns the long-lived HTTP sessions used to talk to the
// marketplace and the PIM.
//
// A Session bundles a cookie jar, a retrying transport, and a request rate
// limiter. Sessions are stateful and not shared across concurrent items; the
// Manager opens each of them exactly once per run and closes them at run end.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Options tunes a session.
type Options struct {
	UserAgent string
	// Timeout bounds a single request including reading the body.
	Timeout time.Duration
	// Rate is the sustained request rate per second; <= 0 disables limiting.
	Rate    float64
	Burst   int
	Retries int
	Backoff time.Duration
}

// Session is one stateful HTTP client.
type Session struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
}

// New builds a session with its own cookie jar.
func New(name string, opts Options) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))
	}

	return &Session{
		name: name,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			Transport: &retryTransport{
				base:      newBaseTransport(),
				userAgent: ua,
				retries:   opts.Retries,
				backoff:   opts.Backoff,
			},
		},
		limiter: limiter,
	}, nil
}

// Name returns the session label used in logs.
func (s *Session) Name() string {
	return s.name
}

// Client exposes the underlying client for callers that need raw access.
func (s *Session) Client() *http.Client {
	return s.client
}

// Do waits for the rate limiter and sends req.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", s.name, err)
	}
	return s.client.Do(req)
}

// Get issues a GET for rawURL.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return s.Do(req)
}

// PostForm submits an urlencoded form.
func (s *Session) PostForm(ctx context.Context, rawURL string, values url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.Do(req)
}

// GetBody fetches rawURL and returns the body of a 2xx response.
func (s *Session) GetBody(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := s.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Cookies returns the cookies the jar would send to rawURL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.client.Jar.Cookies(u)
}

// Close releases idle connections.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}
