package session

import (
	"errors"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when a session is opened without one.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// retryTransport stamps a user agent and retries replayable requests that
// failed before a response arrived.
type retryTransport struct {
	base      http.RoundTripper
	userAgent string
	retries   int
	backoff   time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.base == nil {
		return nil, errors.New("nil base transport")
	}

	// Only GET/HEAD without a body can be replayed.
	attempts := 1
	if (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil {
		attempts += max(t.retries, 0)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && t.backoff > 0 {
			timer := time.NewTimer(t.backoff)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.userAgent)
		}
		resp, err := t.base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func newBaseTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
}
