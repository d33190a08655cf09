package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"listingparity/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.UploadDir = filepath.Join(base, "upload")
	cfgVal.Paths.ReportPath = filepath.Join(base, "report", "results.csv")
	cfgVal.Paths.WorklistPath = filepath.Join(base, "links.csv")
	cfgVal.PIM.BaseURL = "http://127.0.0.1:0"
	cfgVal.PIM.Username = "tester"
	cfgVal.PIM.Password = "secret"
	cfgVal.Downloads.BackoffSeconds = 0
	cfgVal.Downloads.TimeoutSeconds = 5
	cfgVal.PIM.ArchiveTimeoutSeconds = 2
	cfgVal.Marketplace.RequestRate = 1000
	cfgVal.Marketplace.RequestBurst = 100

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPIMBaseURL points the PIM adapter at a test server.
func WithPIMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PIM.BaseURL = url
	}
}

// WithChecks sets the image, video and export toggles.
func WithChecks(images, videos, export bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Checks = config.Checks{Images: images, Videos: videos, Export: export}
	}
}

// WithImageHost overrides the host accepted for marketplace image URLs.
func WithImageHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.ImageHost = host
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffprobe is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
