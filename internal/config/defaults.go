package config

const (
	defaultStateDir                 = "~/.local/share/parity"
	defaultStagingDir               = "~/.local/share/parity/staging"
	defaultDownloadDir              = "~/.local/share/parity/downloads"
	defaultUploadDir                = "galleries for upload"
	defaultReportPath               = "results_report.csv"
	defaultWorklistPath             = "links.csv"
	defaultImageHost                = "media-amazon.com"
	defaultUserAgent                = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultRequestRate              = 1.0
	defaultRequestBurst             = 2
	defaultPageTimeoutSeconds       = 30
	defaultGalleryFallbackCount     = 10
	defaultApprovedStatus           = "Approved"
	defaultPIMLoginPath             = "/index.php"
	defaultPIMGalleryPath           = "/index.php?action=downloadImages"
	defaultPIMExportPath            = "/index.php?action=exportToAmazon"
	defaultArchiveTimeoutSeconds    = 120
	defaultExportTimeoutSeconds     = 15
	defaultVideoProbeTimeoutSeconds = 20
	defaultDownloadRetries          = 3
	defaultDownloadBackoffSeconds   = 2
	defaultDownloadTimeoutSeconds   = 30
	defaultSourceAColumn            = "amazon_url"
	defaultSourceBColumn            = "icepim_url"
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:     defaultStateDir,
			StagingDir:   defaultStagingDir,
			DownloadDir:  defaultDownloadDir,
			UploadDir:    defaultUploadDir,
			ReportPath:   defaultReportPath,
			WorklistPath: defaultWorklistPath,
		},
		Checks: Checks{
			Images: true,
			Videos: true,
			Export: false,
		},
		Marketplace: Marketplace{
			ImageHost:            defaultImageHost,
			UserAgent:            defaultUserAgent,
			RequestRate:          defaultRequestRate,
			RequestBurst:         defaultRequestBurst,
			PageTimeoutSeconds:   defaultPageTimeoutSeconds,
			GalleryFallbackCount: defaultGalleryFallbackCount,
		},
		PIM: PIM{
			ApprovedStatus:           defaultApprovedStatus,
			LoginPath:                defaultPIMLoginPath,
			GalleryPath:              defaultPIMGalleryPath,
			ExportPath:               defaultPIMExportPath,
			ArchiveTimeoutSeconds:    defaultArchiveTimeoutSeconds,
			ExportTimeoutSeconds:     defaultExportTimeoutSeconds,
			VideoProbeTimeoutSeconds: defaultVideoProbeTimeoutSeconds,
		},
		Downloads: Downloads{
			Retries:        defaultDownloadRetries,
			BackoffSeconds: defaultDownloadBackoffSeconds,
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Worklist: Worklist{
			SourceAColumn: defaultSourceAColumn,
			SourceBColumn: defaultSourceBColumn,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
