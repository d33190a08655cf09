package marketplace_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingparity/internal/catalog"
	"listingparity/internal/logging"
	"listingparity/internal/services"
	"listingparity/internal/services/marketplace"
	"listingparity/internal/session"
	"listingparity/internal/snapshot"
)

func newClient(t *testing.T, opts marketplace.Options) *marketplace.Client {
	t.Helper()
	override := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(override, []byte(
		"marketplaces:\n  - domain: 127.0.0.1\n    brand_store: "+fixtureStoreID+"\n    export_locale: Test Locale\n"), 0o644))
	cat, err := catalog.Load(override)
	require.NoError(t, err)

	s, err := session.New("marketplace", session.Options{})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return marketplace.New(s, cat, opts, logging.NewNop())
}

func TestFetchSnapshotPassesInterstitialOnFirstItem(t *testing.T) {
	listing := readFixture(t, "listing.html")
	gate := readFixture(t, "interstitial.html")
	var passed atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/errors/validateCaptcha":
			if r.URL.Query().Get("amzn") == "tok123" {
				passed.Store(true)
			}
			w.WriteHeader(http.StatusNoContent)
		case "/dp/B000TEST01":
			if !passed.Load() {
				_, _ = w.Write(gate)
				return
			}
			_, _ = w.Write(listing)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newClient(t, marketplace.Options{ImageHost: "m.media-amazon.com", Videos: true})
	result := client.FetchSnapshot(context.Background(), srv.URL+"/dp/B000TEST01", true)
	require.NoError(t, result.Err)

	snap := result.Snapshot
	assert.True(t, passed.Load())
	assert.Equal(t, snapshot.SourceMarketplace, snap.Source)
	assert.Equal(t, "Acme Electric Kettle 1.7 L", snap.Title)
	assert.Len(t, snap.Bullets, 4)
	assert.True(t, snap.HasManual)
	assert.True(t, snap.StoreCorrect)
	assert.Equal(t, 2, snap.Videos.Count)
	assert.Len(t, snap.ImageURLs, 3)
}

func TestFetchSnapshotRefetchesIncompletePage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`<span id="productTitle">Kettle</span><div id="feature-bullets"><ul><li><span class="a-list-item">one</span></li></ul></div>`))
			return
		}
		_, _ = w.Write([]byte(`<span id="productTitle">Kettle</span><div id="feature-bullets"><ul>
<li><span class="a-list-item">one</span></li><li><span class="a-list-item">two</span></li><li><span class="a-list-item">three</span></li></ul></div>`))
	}))
	defer srv.Close()

	client := newClient(t, marketplace.Options{})
	result := client.FetchSnapshot(context.Background(), srv.URL+"/dp/X", false)
	require.NoError(t, result.Err)
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, []string{"one", "two", "three"}, result.Snapshot.Bullets)
	assert.False(t, result.Snapshot.StoreCorrect)
}

func TestFetchSnapshotKeepsIncompleteAfterRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<span id="productTitle">Kettle</span>`))
	}))
	defer srv.Close()

	result := newClient(t, marketplace.Options{}).FetchSnapshot(context.Background(), srv.URL+"/dp/X", false)
	require.NoError(t, result.Err)
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, "Kettle", result.Snapshot.Title)
	assert.Empty(t, result.Snapshot.Bullets)
}

func TestFetchSnapshotFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/gone") {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer srv.Close()

	client := newClient(t, marketplace.Options{})
	for name, locator := range map[string]string{
		"no title":    srv.URL + "/dp/X",
		"http error":  srv.URL + "/gone",
		"empty":       "  ",
		"bad locator": "://nope",
	} {
		t.Run(name, func(t *testing.T) {
			result := client.FetchSnapshot(context.Background(), locator, false)
			require.Error(t, result.Err)
			assert.True(t, errors.Is(result.Err, services.ErrExtraction))
			assert.True(t, result.Snapshot.Degraded)
			assert.Equal(t, snapshot.NotFound, result.Snapshot.Title)
		})
	}
}

func TestDownloadImagesWritesPlaceholderOnFailure(t *testing.T) {
	var badHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			badHits.Add(1)
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("jpeg:" + r.URL.Path))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "marketplace")
	client := newClient(t, marketplace.Options{Attempts: 2})
	manifest, err := client.DownloadImages(context.Background(), "B01", []string{
		srv.URL + "/main.jpg",
		srv.URL + "/bad.jpg",
		srv.URL + "/side.jpg",
	}, dir)

	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrDownload))
	assert.EqualValues(t, 2, badHits.Load())
	assert.Equal(t, dir, manifest.Dir)
	assert.Equal(t, []string{"B01.MAIN.jpg", "B01.PT01.jpg", "B01.PT02.jpg"}, manifest.Files)

	mainImg, err := os.ReadFile(filepath.Join(dir, "B01.MAIN.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/main.jpg", string(mainImg))

	info, err := os.Stat(filepath.Join(dir, "B01.PT01.jpg"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestDownloadImagesStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, marketplace.Options{}).DownloadImages(ctx, "B01", []string{srv.URL + "/a.jpg"}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
