package pim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"listingparity/internal/fileutil"
	"listingparity/internal/logging"
	"listingparity/internal/services"
	"listingparity/internal/session"
	"listingparity/internal/snapshot"
	"listingparity/internal/textutil"
	"listingparity/internal/videoparity"
)

const (
	sourceName = "pim"

	userField     = "admin_login_form_user_name"
	passwordField = "admin_login_form_user_password"
	galleryField  = "asin"
	exportField   = "export_to_amazon_selector"
)

// DurationProber measures a remote video. ffprobe.Prober satisfies it.
type DurationProber interface {
	Duration(ctx context.Context, target string, headers ...string) (float64, error)
}

// Options configures the PIM endpoints and timeouts.
type Options struct {
	BaseURL     string
	Username    string
	Password    string
	LoginPath   string
	GalleryPath string
	ExportPath  string
	// DownloadDir is the drop folder the PIM delivers gallery archives to
	// when it does not return them inline.
	DownloadDir    string
	ArchiveTimeout time.Duration
	ExportTimeout  time.Duration
	Videos         bool
}

// Client implements snapshot.PIMSource.
type Client struct {
	session *session.Session
	prober  DurationProber
	opts    Options
	logger  *slog.Logger
}

var _ snapshot.PIMSource = (*Client)(nil)

// New wires a client over an already logged-in session.
func New(s *session.Session, prober DurationProber, opts Options, logger *slog.Logger) *Client {
	return &Client{
		session: s,
		prober:  prober,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, sourceName),
	}
}

// Login returns a session initializer that posts the credentials in opts.
func Login(opts Options) session.Initializer {
	return func(ctx context.Context, s *session.Session) error {
		if opts.Username == "" || opts.Password == "" {
			return services.Wrap(services.ErrConfiguration, sourceName, "login", "credentials missing", nil)
		}
		endpoint := joinURL(opts.BaseURL, opts.LoginPath)
		resp, err := s.PostForm(ctx, endpoint, url.Values{
			userField:     {opts.Username},
			passwordField: {opts.Password},
		})
		if err != nil {
			return services.Wrap(services.ErrSetup, sourceName, "login", "PIM unreachable", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return services.Wrap(services.ErrSetup, sourceName, "login", "read login response", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return services.Wrap(services.ErrSetup, sourceName, "login", "login failed",
				&session.StatusError{URL: endpoint, StatusCode: resp.StatusCode})
		}
		if LoginRejected(body) {
			return services.Wrap(services.ErrSetup, sourceName, "login", "credentials rejected", nil)
		}
		return nil
	}
}

// FetchSnapshot reads the record at locator. All failures, panics included,
// are returned as a failed Result.
func (c *Client) FetchSnapshot(ctx context.Context, locator string) (result snapshot.Result) {
	logger := logging.WithContext(ctx, c.logger)
	defer func() {
		if r := recover(); r != nil {
			result = snapshot.Failed(snapshot.SourcePIM,
				services.Wrap(services.ErrExtraction, sourceName, "fetch", fmt.Sprintf("panic: %v", r), nil))
		}
	}()

	locator = strings.TrimSpace(locator)
	if locator == "" {
		return snapshot.Failed(snapshot.SourcePIM,
			services.Wrap(services.ErrExtraction, sourceName, "fetch", "empty record locator", nil))
	}
	html, err := c.session.GetBody(ctx, locator)
	if err != nil {
		return snapshot.Failed(snapshot.SourcePIM,
			services.Wrap(services.ErrExtraction, sourceName, "fetch", "record unreachable", err))
	}
	rec, err := ParseRecord(html, LanguageID(locator))
	if err != nil {
		return snapshot.Failed(snapshot.SourcePIM,
			services.Wrap(services.ErrExtraction, sourceName, "parse", "record unreadable", err))
	}
	if !rec.BlockFound {
		logging.WarnWithContext(logger, "language block not found", "pim_language_missing",
			logging.String("language_id", rec.LanguageID),
			logging.String(logging.FieldErrorHint, "check the languageID parameter of the PIM locator"),
			logging.String(logging.FieldImpact, "title and bullets compare against placeholders"),
		)
	}

	videos := snapshot.Videos{Durations: []string{}}
	if c.opts.Videos {
		videos = c.probeVideos(ctx, locator, rec.Videos)
	}

	logger.Info("record read",
		logging.String("status", rec.Status),
		logging.Int("bullets", len(rec.Bullets)),
		logging.Int("videos", videos.Count),
		logging.String(logging.FieldEventType, "record_read"),
	)
	return snapshot.OK(snapshot.ProductSnapshot{
		Source:  snapshot.SourcePIM,
		Title:   rec.Title,
		Bullets: rec.Bullets,
		Status:  rec.Status,
		Videos:  videos,
	})
}

// probeVideos measures every listed video. A probe that fails yields
// videoparity.Failed; an entry without a media URL or a usable duration
// yields videoparity.Unknown.
func (c *Client) probeVideos(ctx context.Context, locator string, refs []VideoRef) snapshot.Videos {
	logger := logging.WithContext(ctx, c.logger)
	out := snapshot.Videos{Count: len(refs), Durations: make([]string, 0, len(refs))}
	for i, ref := range refs {
		if ref.URL == "" {
			out.Durations = append(out.Durations, videoparity.Unknown)
			continue
		}
		if c.prober == nil {
			out.Durations = append(out.Durations, videoparity.Failed)
			continue
		}
		target := resolveURL(locator, ref.URL)
		seconds, err := c.prober.Duration(ctx, target, c.cookieHeader(target)...)
		if err != nil {
			logger.Info("video probe failed",
				logging.Int("video", i+1),
				logging.Error(err),
				logging.String(logging.FieldEventType, "video_probe_failed"),
			)
			out.Durations = append(out.Durations, videoparity.Failed)
			continue
		}
		out.Durations = append(out.Durations, videoparity.FormatDuration(seconds))
	}
	return out
}

func (c *Client) cookieHeader(target string) []string {
	cookies := c.session.Cookies(target)
	if len(cookies) == 0 {
		return nil
	}
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return []string{"Cookie: " + strings.Join(parts, "; ")}
}

// DownloadGalleryArchive asks the PIM for the item's gallery archive and
// extracts it into dir. The archive is either streamed back in the response
// or dropped into the download folder within the archive timeout. Once the
// archive is on disk its ZipPath is returned even when extraction fails, so
// the caller can release it with the item.
func (c *Client) DownloadGalleryArchive(ctx context.Context, itemID string, dir string) (snapshot.Archive, error) {
	logger := logging.WithContext(ctx, c.logger)
	since := time.Now().Truncate(time.Second)

	endpoint := joinURL(c.opts.BaseURL, c.opts.GalleryPath)
	resp, err := c.session.PostForm(ctx, endpoint, url.Values{galleryField: {itemID}})
	if err != nil {
		return snapshot.Archive{}, services.Wrap(services.ErrDownload, sourceName, "gallery", "trigger gallery archive", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return snapshot.Archive{}, services.Wrap(services.ErrDownload, sourceName, "gallery", "trigger gallery archive",
			&session.StatusError{URL: endpoint, StatusCode: resp.StatusCode})
	}

	var zipPath string
	if isArchiveResponse(resp) {
		zipPath = filepath.Join(c.opts.DownloadDir, textutil.SanitizeToken(itemID)+".zip")
		if err := os.MkdirAll(c.opts.DownloadDir, 0o755); err != nil {
			return snapshot.Archive{}, services.Wrap(services.ErrDownload, sourceName, "gallery", "create download folder", err)
		}
		if _, err := fileutil.WriteFileAtomic(zipPath, resp.Body); err != nil {
			return snapshot.Archive{}, services.Wrap(services.ErrDownload, sourceName, "gallery", "save gallery archive", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
		logger.Info("waiting for gallery archive",
			logging.String("dir", c.opts.DownloadDir),
			logging.Duration("timeout", c.opts.ArchiveTimeout),
			logging.String(logging.FieldEventType, "archive_wait"),
		)
		zipPath, err = fileutil.WaitForFile(ctx, c.opts.DownloadDir, since, c.opts.ArchiveTimeout, fileutil.HasExtension(".zip"))
		if err != nil {
			if errors.Is(err, fileutil.ErrWaitTimeout) {
				return snapshot.Archive{}, services.Wrap(services.ErrTimeout, sourceName, "gallery", "gallery archive never arrived", err)
			}
			return snapshot.Archive{}, services.Wrap(services.ErrDownload, sourceName, "gallery", "wait for gallery archive", err)
		}
	}

	files, err := fileutil.ExtractZip(zipPath, dir)
	if err != nil {
		return snapshot.Archive{ZipPath: zipPath}, services.Wrap(services.ErrDownload, sourceName, "gallery", "extract gallery archive", err)
	}
	logger.Info("gallery archive extracted",
		logging.String("archive", filepath.Base(zipPath)),
		logging.Int("files", len(files)),
		logging.String(logging.FieldEventType, "archive_extracted"),
	)
	return snapshot.Archive{Dir: dir, ZipPath: zipPath}, nil
}

func isArchiveResponse(resp *http.Response) bool {
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		switch mediaType {
		case "application/zip", "application/x-zip-compressed", "application/octet-stream":
			return true
		}
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	return err == nil && strings.HasSuffix(strings.ToLower(params["filename"]), ".zip")
}

// RequestExport selects targetLocale in the record's export dialog and
// submits it.
func (c *Client) RequestExport(ctx context.Context, locator, targetLocale string) error {
	if c.opts.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ExportTimeout)
		defer cancel()
	}
	html, err := c.session.GetBody(ctx, locator)
	if err != nil {
		return services.Wrap(services.ErrExtraction, sourceName, "export", "record unreachable", err)
	}
	option, ok := ExportOption(html, targetLocale)
	if !ok {
		return services.Wrap(services.ErrExtraction, sourceName, "export",
			fmt.Sprintf("export target %q not offered", targetLocale), nil)
	}

	values := url.Values{}
	if u, err := url.Parse(locator); err == nil {
		for key, vals := range u.Query() {
			values[key] = vals
		}
	}
	values.Set(exportField, option)

	endpoint := joinURL(c.opts.BaseURL, c.opts.ExportPath)
	resp, err := c.session.PostForm(ctx, endpoint, values)
	if err != nil {
		return services.Wrap(services.ErrDownload, sourceName, "export", "submit export", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return services.Wrap(services.ErrDownload, sourceName, "export", "submit export",
			&session.StatusError{URL: endpoint, StatusCode: resp.StatusCode})
	}
	logging.WithContext(ctx, c.logger).Info("export requested",
		logging.String("locale", targetLocale),
		logging.String(logging.FieldEventType, "export_requested"),
	)
	return nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func resolveURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
