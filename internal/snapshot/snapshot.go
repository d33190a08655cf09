// Package snapshot defines the per-source product record the parity engines
// consume, the Result wrapper every fetch returns, and the interfaces the two
// source adapters implement.
package snapshot

import (
	"context"
	"slices"
)

// Source tags which side of the comparison a snapshot came from.
type Source string

const (
	SourceMarketplace Source = "marketplace"
	SourcePIM         Source = "pim"
)

const (
	// NotFound is the placeholder title of a degraded snapshot.
	NotFound = "NOT FOUND"
	// StatusError is the status label of a degraded snapshot.
	StatusError = "ERROR"
)

// Videos is a source's promotional video count and m:ss durations.
type Videos struct {
	Count     int
	Durations []string
}

// Manifest lists downloaded images by file name inside Dir.
type Manifest struct {
	Dir   string
	Files []string
}

// Archive is a retrieved gallery archive and its extraction folder.
type Archive struct {
	Dir     string
	ZipPath string
}

// ProductSnapshot is one source's normalized read of one item.
type ProductSnapshot struct {
	Source  Source
	Title   string
	Bullets []string
	// Status is the PIM approval label; empty for the marketplace.
	Status string
	Images Manifest
	Videos Videos

	// Marketplace only.
	HasManual    bool
	StoreCorrect bool
	ImageURLs    []string

	Degraded bool
}

// Clone returns a deep copy.
func (s ProductSnapshot) Clone() ProductSnapshot {
	s.Bullets = slices.Clone(s.Bullets)
	s.Images.Files = slices.Clone(s.Images.Files)
	s.Videos.Durations = slices.Clone(s.Videos.Durations)
	s.ImageURLs = slices.Clone(s.ImageURLs)
	return s
}

// Degraded returns the placeholder substituted when a source cannot be read.
func Degraded(source Source) ProductSnapshot {
	return ProductSnapshot{
		Source:   source,
		Title:    NotFound,
		Bullets:  []string{},
		Status:   StatusError,
		Degraded: true,
	}
}

// Result is the outcome of one snapshot fetch. Exactly one of Snapshot or Err
// is meaningful; Settle collapses it to a usable snapshot.
type Result struct {
	Snapshot ProductSnapshot
	Err      error
}

// OK wraps a successful snapshot.
func OK(s ProductSnapshot) Result {
	return Result{Snapshot: s}
}

// Failed wraps an extraction failure for source.
func Failed(source Source, err error) Result {
	return Result{Snapshot: Degraded(source), Err: err}
}

// Settle returns the snapshot, substituting the degraded placeholder when the
// fetch failed.
func (r Result) Settle(source Source) ProductSnapshot {
	if r.Err != nil {
		return Degraded(source)
	}
	return r.Snapshot
}

// MarketplaceSource reads the public listing (source A).
type MarketplaceSource interface {
	// FetchSnapshot never panics on bad input; all failure is in Result.Err.
	// first is true only for the first item of a run.
	FetchSnapshot(ctx context.Context, locator string, first bool) Result
	// DownloadImages stores the gallery under dir as <itemID>.MAIN.jpg,
	// <itemID>.PT01.jpg, ... .
	DownloadImages(ctx context.Context, itemID string, urls []string, dir string) (Manifest, error)
}

// PIMSource reads the canonical product record (source B).
type PIMSource interface {
	FetchSnapshot(ctx context.Context, locator string) Result
	// DownloadGalleryArchive retrieves and extracts the item's gallery
	// archive into dir. A timeout returns an empty Archive and an error
	// marked services.ErrTimeout.
	DownloadGalleryArchive(ctx context.Context, itemID string, dir string) (Archive, error)
	// RequestExport asks the PIM to push its copy to targetLocale.
	RequestExport(ctx context.Context, locator, targetLocale string) error
}
