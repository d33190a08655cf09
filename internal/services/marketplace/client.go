package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"listingparity/internal/catalog"
	"listingparity/internal/fileutil"
	"listingparity/internal/logging"
	"listingparity/internal/services"
	"listingparity/internal/session"
	"listingparity/internal/snapshot"
)

const sourceName = "marketplace"

// Options tunes extraction and image downloads.
type Options struct {
	ImageHost     string
	FallbackCount int
	Videos        bool
	// Attempts per image before a zero-byte placeholder is written.
	Attempts        int
	Backoff         time.Duration
	DownloadTimeout time.Duration
}

// Client implements snapshot.MarketplaceSource over an HTTP session.
type Client struct {
	session *session.Session
	catalog *catalog.Catalog
	opts    Options
	logger  *slog.Logger
}

var _ snapshot.MarketplaceSource = (*Client)(nil)

// New wires a client. The session must not be shared with concurrent items.
func New(s *session.Session, cat *catalog.Catalog, opts Options, logger *slog.Logger) *Client {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	return &Client{
		session: s,
		catalog: cat,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, sourceName),
	}
}

// FetchSnapshot reads the listing at locator. All failures, panics included,
// are returned as a failed Result.
func (c *Client) FetchSnapshot(ctx context.Context, locator string, first bool) (result snapshot.Result) {
	logger := logging.WithContext(ctx, c.logger)
	defer func() {
		if r := recover(); r != nil {
			result = snapshot.Failed(snapshot.SourceMarketplace,
				services.Wrap(services.ErrExtraction, sourceName, "fetch", fmt.Sprintf("panic: %v", r), nil))
		}
	}()

	locator = strings.TrimSpace(locator)
	if locator == "" {
		return snapshot.Failed(snapshot.SourceMarketplace,
			services.Wrap(services.ErrExtraction, sourceName, "fetch", "empty listing locator", nil))
	}

	domain := catalog.DomainOf(locator)
	opts := ParseOptions{
		ImageHost:     c.opts.ImageHost,
		FallbackCount: c.opts.FallbackCount,
		Videos:        c.opts.Videos,
	}
	if id, ok := c.catalog.BrandStore(domain); ok {
		opts.BrandStoreID = id
	} else {
		logger.Info("brand store not catalogued for domain",
			logging.String("domain", domain),
			logging.String(logging.FieldEventType, "brand_store_unknown"),
		)
	}

	var page Page
	for attempt := 1; attempt <= 2; attempt++ {
		html, err := c.load(ctx, locator, first && attempt == 1)
		if err != nil {
			return snapshot.Failed(snapshot.SourceMarketplace,
				services.Wrap(services.ErrExtraction, sourceName, "fetch", "listing unreachable", err))
		}
		page, err = ParsePage(html, opts)
		if err != nil {
			return snapshot.Failed(snapshot.SourceMarketplace,
				services.Wrap(services.ErrExtraction, sourceName, "parse", "listing unreadable", err))
		}
		if page.Complete() {
			break
		}
		if attempt == 1 {
			logger.Info("listing incomplete, fetching again",
				logging.Int("bullets", len(page.Bullets)),
				logging.Bool("title_found", page.Title != ""),
				logging.String(logging.FieldEventType, "listing_retry"),
			)
		}
	}
	if page.Title == "" {
		return snapshot.Failed(snapshot.SourceMarketplace,
			services.Wrap(services.ErrExtraction, sourceName, "parse", "product title not found", nil))
	}

	logger.Info("listing read",
		logging.Int("bullets", len(page.Bullets)),
		logging.Bool("manual", page.HasManual),
		logging.Bool("brand_store", page.StoreCorrect),
		logging.Int("videos", page.Videos.Count),
		logging.Int("images", len(page.ImageURLs)),
		logging.String(logging.FieldEventType, "listing_read"),
	)
	return snapshot.OK(snapshot.ProductSnapshot{
		Source:       snapshot.SourceMarketplace,
		Title:        page.Title,
		Bullets:      page.Bullets,
		HasManual:    page.HasManual,
		StoreCorrect: page.StoreCorrect,
		Videos:       page.Videos,
		ImageURLs:    page.ImageURLs,
	})
}

// load fetches the listing, passing the continue-shopping gate once when
// interstitial is set.
func (c *Client) load(ctx context.Context, locator string, interstitial bool) ([]byte, error) {
	html, err := c.session.GetBody(ctx, locator)
	if err != nil || !interstitial {
		return html, err
	}
	gate, ok := FindInterstitial(html, locator)
	if !ok {
		return html, nil
	}
	logging.WithContext(ctx, c.logger).Info("continue-shopping page detected",
		logging.String(logging.FieldEventType, "interstitial_passed"),
	)
	var resp *http.Response
	if gate.Method == http.MethodPost {
		resp, err = c.session.PostForm(ctx, gate.Action, gate.Values)
	} else {
		target := gate.Action
		if len(gate.Values) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + gate.Values.Encode()
		}
		resp, err = c.session.Get(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("pass interstitial: %w", err)
	}
	resp.Body.Close()
	return c.session.GetBody(ctx, locator)
}

// DownloadImages stores urls under dir as <itemID>.MAIN.jpg, <itemID>.PT01.jpg,
// ... . An image that fails every attempt leaves a zero-byte placeholder; the
// returned error then lists those images but the manifest is still usable.
func (c *Client) DownloadImages(ctx context.Context, itemID string, urls []string, dir string) (snapshot.Manifest, error) {
	logger := logging.WithContext(ctx, c.logger)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return snapshot.Manifest{}, services.Wrap(services.ErrDownload, sourceName, "images", "create image folder", err)
	}

	manifest := snapshot.Manifest{Dir: dir, Files: make([]string, 0, len(urls))}
	var failures []error
	for i, u := range urls {
		name := ImageFileName(itemID, i)
		path := filepath.Join(dir, name)
		if err := c.downloadWithRetry(ctx, u, path); err != nil {
			if ctx.Err() != nil {
				return manifest, ctx.Err()
			}
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			if perr := os.WriteFile(path, nil, 0o644); perr != nil {
				failures = append(failures, fmt.Errorf("%s placeholder: %w", name, perr))
			}
			logging.WarnWithContext(logger, "image download failed, placeholder written", "image_download_failed",
				logging.String("file", name),
				logging.String("url", u),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the CDN may be throttling; raise downloads.backoff_seconds"),
				logging.String(logging.FieldImpact, "image pair will not match"),
			)
		}
		manifest.Files = append(manifest.Files, name)
	}
	logger.Info("images downloaded",
		logging.Int("count", len(urls)),
		logging.Int("failed", len(failures)),
		logging.String(logging.FieldEventType, "images_downloaded"),
	)
	if len(failures) > 0 {
		return manifest, services.Wrap(services.ErrDownload, sourceName, "images",
			fmt.Sprintf("%d of %d images failed", len(failures), len(urls)), errors.Join(failures...))
	}
	return manifest, nil
}

func (c *Client) downloadWithRetry(ctx context.Context, rawURL, path string) error {
	var lastErr error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		if attempt > 1 && c.opts.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.opts.Backoff):
			}
		}
		if lastErr = c.downloadOnce(ctx, rawURL, path); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, path string) error {
	if c.opts.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.DownloadTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	// Images come from the CDN, so they bypass the page rate limiter.
	resp, err := c.session.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &session.StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	_, err = fileutil.WriteFileAtomic(path, resp.Body)
	return err
}

// ImageFileName names the position-th gallery image of itemID.
func ImageFileName(itemID string, position int) string {
	if position == 0 {
		return itemID + ".MAIN.jpg"
	}
	return fmt.Sprintf("%s.PT%02d.jpg", itemID, position)
}
