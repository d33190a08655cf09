package testsupport

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"listingparity/internal/fileutil"
	"listingparity/internal/services/marketplace"
	"listingparity/internal/snapshot"
)

// FakeListing is what FakeMarketplace serves for one locator. Gallery is in
// display order; its URLs are synthesized into Snapshot.ImageURLs.
type FakeListing struct {
	Snapshot snapshot.ProductSnapshot
	Err      error
	Gallery  []ProductImage
	Panic    bool
}

// FakeMarketplace is an in-memory snapshot.MarketplaceSource.
type FakeMarketplace struct {
	t        testing.TB
	mu       sync.Mutex
	listings map[string]FakeListing
	images   map[string]ProductImage
	first    []bool
}

// NewFakeMarketplace returns an empty fake.
func NewFakeMarketplace(t testing.TB) *FakeMarketplace {
	return &FakeMarketplace{t: t, listings: map[string]FakeListing{}, images: map[string]ProductImage{}}
}

// Add registers the listing served at locator.
func (f *FakeMarketplace) Add(locator string, listing FakeListing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing.Snapshot.Source = snapshot.SourceMarketplace
	listing.Snapshot.ImageURLs = nil
	for i, img := range listing.Gallery {
		u := fmt.Sprintf("fake://%s/%d", locator, i)
		f.images[u] = img
		listing.Snapshot.ImageURLs = append(listing.Snapshot.ImageURLs, u)
	}
	f.listings[locator] = listing
}

// FetchSnapshot implements snapshot.MarketplaceSource.
func (f *FakeMarketplace) FetchSnapshot(_ context.Context, locator string, first bool) snapshot.Result {
	f.mu.Lock()
	f.first = append(f.first, first)
	listing, ok := f.listings[locator]
	f.mu.Unlock()

	switch {
	case listing.Panic:
		panic("fake marketplace exploded")
	case !ok:
		return snapshot.Failed(snapshot.SourceMarketplace, fmt.Errorf("no listing at %s", locator))
	case listing.Err != nil:
		return snapshot.Failed(snapshot.SourceMarketplace, listing.Err)
	}
	return snapshot.OK(listing.Snapshot.Clone())
}

// DownloadImages implements snapshot.MarketplaceSource.
func (f *FakeMarketplace) DownloadImages(_ context.Context, itemID string, urls []string, dir string) (snapshot.Manifest, error) {
	manifest := snapshot.Manifest{Dir: dir}
	for i, u := range urls {
		f.mu.Lock()
		img, ok := f.images[u]
		f.mu.Unlock()
		if !ok {
			return manifest, fmt.Errorf("unknown image %s", u)
		}
		name := marketplace.ImageFileName(itemID, i)
		img.Write(f.t, filepath.Join(dir, name))
		manifest.Files = append(manifest.Files, name)
	}
	return manifest, nil
}

// FirstFlags returns the first-item flag of every FetchSnapshot call.
func (f *FakeMarketplace) FirstFlags() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.first...)
}

// FakeRecord is what FakePIM serves for one locator. Gallery maps positional
// keys (MAIN, PT01, ...) to the images of the item's archive.
type FakeRecord struct {
	Snapshot   snapshot.ProductSnapshot
	Err        error
	Gallery    map[string]ProductImage
	ArchiveErr error
	// CorruptArchive leaves an unreadable <itemID>.zip behind and reports
	// the extraction failure alongside its path.
	CorruptArchive bool
	Panic          bool
}

// ExportCall records one RequestExport invocation.
type ExportCall struct {
	Locator string
	Locale  string
}

// FakePIM is an in-memory snapshot.PIMSource.
type FakePIM struct {
	t        testing.TB
	zipDir   string
	mu       sync.Mutex
	records  map[string]FakeRecord
	byItem   map[string]FakeRecord
	archives []string
	exports  []ExportCall

	// ExportErr is returned by every RequestExport call.
	ExportErr error
}

// NewFakePIM returns an empty fake whose archives live in a temp dir.
func NewFakePIM(t testing.TB) *FakePIM {
	return &FakePIM{
		t:       t,
		zipDir:  t.TempDir(),
		records: map[string]FakeRecord{},
		byItem:  map[string]FakeRecord{},
	}
}

// Add registers the record served at locator for itemID.
func (f *FakePIM) Add(locator, itemID string, rec FakeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.Snapshot.Source = snapshot.SourcePIM
	f.records[locator] = rec
	f.byItem[itemID] = rec
}

// FetchSnapshot implements snapshot.PIMSource.
func (f *FakePIM) FetchSnapshot(_ context.Context, locator string) snapshot.Result {
	f.mu.Lock()
	rec, ok := f.records[locator]
	f.mu.Unlock()

	switch {
	case rec.Panic:
		panic("fake pim exploded")
	case !ok:
		return snapshot.Failed(snapshot.SourcePIM, fmt.Errorf("no record at %s", locator))
	case rec.Err != nil:
		return snapshot.Failed(snapshot.SourcePIM, rec.Err)
	}
	return snapshot.OK(rec.Snapshot.Clone())
}

// DownloadGalleryArchive implements snapshot.PIMSource. The archive is
// written as <itemID>.zip and extracted into dir.
func (f *FakePIM) DownloadGalleryArchive(_ context.Context, itemID string, dir string) (snapshot.Archive, error) {
	f.mu.Lock()
	f.archives = append(f.archives, itemID)
	rec := f.byItem[itemID]
	f.mu.Unlock()
	if rec.ArchiveErr != nil {
		return snapshot.Archive{}, rec.ArchiveErr
	}

	zipPath := filepath.Join(f.zipDir, itemID+".zip")
	if rec.CorruptArchive {
		if err := os.WriteFile(zipPath, []byte("not a zip"), 0o644); err != nil {
			f.t.Fatalf("write archive: %v", err)
		}
		_, err := fileutil.ExtractZip(zipPath, dir)
		return snapshot.Archive{ZipPath: zipPath}, err
	}
	f.writeArchive(zipPath, itemID, rec.Gallery)
	if _, err := fileutil.ExtractZip(zipPath, dir); err != nil {
		return snapshot.Archive{ZipPath: zipPath}, err
	}
	return snapshot.Archive{Dir: dir, ZipPath: zipPath}, nil
}

func (f *FakePIM) writeArchive(path, itemID string, gallery map[string]ProductImage) {
	f.t.Helper()
	out, err := os.Create(path)
	if err != nil {
		f.t.Fatalf("create archive: %v", err)
	}
	defer out.Close()

	keys := make([]string, 0, len(gallery))
	for key := range gallery {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	zw := zip.NewWriter(out)
	for _, key := range keys {
		w, err := zw.Create(fmt.Sprintf("%s/%s.%s.jpg", itemID, itemID, key))
		if err != nil {
			f.t.Fatalf("archive entry: %v", err)
		}
		if _, err := w.Write(gallery[key].PNG(f.t)); err != nil {
			f.t.Fatalf("archive write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		f.t.Fatalf("close archive: %v", err)
	}
}

// RequestExport implements snapshot.PIMSource.
func (f *FakePIM) RequestExport(_ context.Context, locator, targetLocale string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, ExportCall{Locator: locator, Locale: targetLocale})
	return f.ExportErr
}

// ArchiveDir is where the fake writes item archives.
func (f *FakePIM) ArchiveDir() string {
	return f.zipDir
}

// ArchiveRequests returns the item ids archives were requested for.
func (f *FakePIM) ArchiveRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.archives...)
}

// Exports returns every export request.
func (f *FakePIM) Exports() []ExportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ExportCall(nil), f.exports...)
}
