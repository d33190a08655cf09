package batch

import (
	"context"
	"log/slog"
	"time"

	"listingparity/internal/catalog"
	"listingparity/internal/config"
	"listingparity/internal/media/ffprobe"
	"listingparity/internal/services/marketplace"
	"listingparity/internal/services/pim"
	"listingparity/internal/session"
	"listingparity/internal/snapshot"
)

// Sources are the two adapters a run reconciles against.
type Sources struct {
	Marketplace snapshot.MarketplaceSource
	PIM         snapshot.PIMSource
}

// SourceFactory opens the run's sources. The returned close func is called
// once the last item is done.
type SourceFactory func(ctx context.Context) (Sources, func(), error)

const (
	marketplaceSession = "marketplace"
	pimSession         = "pim"
)

// NetworkSources opens one marketplace session and one logged-in PIM
// session, shared by every item of the run.
func NetworkSources(cfg *config.Config, cat *catalog.Catalog, logger *slog.Logger) SourceFactory {
	return func(ctx context.Context) (Sources, func(), error) {
		pimOpts := pim.Options{
			BaseURL:        cfg.PIM.BaseURL,
			Username:       cfg.PIM.Username,
			Password:       cfg.PIM.Password,
			LoginPath:      cfg.PIM.LoginPath,
			GalleryPath:    cfg.PIM.GalleryPath,
			ExportPath:     cfg.PIM.ExportPath,
			DownloadDir:    cfg.Paths.DownloadDir,
			ArchiveTimeout: seconds(cfg.PIM.ArchiveTimeoutSeconds),
			ExportTimeout:  seconds(cfg.PIM.ExportTimeoutSeconds),
			Videos:         cfg.Checks.Videos,
		}
		pageOpts := session.Options{
			UserAgent: cfg.Marketplace.UserAgent,
			Timeout:   seconds(cfg.Marketplace.PageTimeoutSeconds),
			Retries:   cfg.Downloads.Retries - 1,
			Backoff:   seconds(cfg.Downloads.BackoffSeconds),
		}
		marketOpts := pageOpts
		marketOpts.Rate = cfg.Marketplace.RequestRate
		marketOpts.Burst = cfg.Marketplace.RequestBurst

		manager := session.NewManager(logger,
			session.Spec{Name: marketplaceSession, Options: marketOpts},
			session.Spec{Name: pimSession, Options: pageOpts, Init: pim.Login(pimOpts)},
		)
		if err := manager.Open(ctx); err != nil {
			manager.Close()
			return Sources{}, nil, err
		}
		marketSess, err := manager.Session(marketplaceSession)
		if err != nil {
			manager.Close()
			return Sources{}, nil, err
		}
		pimSess, err := manager.Session(pimSession)
		if err != nil {
			manager.Close()
			return Sources{}, nil, err
		}

		prober := ffprobe.Prober{
			Binary:  cfg.FFprobeBinary(),
			Timeout: seconds(cfg.PIM.VideoProbeTimeoutSeconds),
		}
		return Sources{
			Marketplace: marketplace.New(marketSess, cat, marketplace.Options{
				ImageHost:       cfg.Marketplace.ImageHost,
				FallbackCount:   cfg.Marketplace.GalleryFallbackCount,
				Videos:          cfg.Checks.Videos,
				Attempts:        cfg.Downloads.Retries,
				Backoff:         seconds(cfg.Downloads.BackoffSeconds),
				DownloadTimeout: seconds(cfg.Downloads.TimeoutSeconds),
			}, logger),
			PIM: pim.New(pimSess, prober, pimOpts, logger),
		}, manager.Close, nil
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
