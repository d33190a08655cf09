package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	StateDir     string `toml:"state_dir"`
	StagingDir   string `toml:"staging_dir"`
	DownloadDir  string `toml:"download_dir"`
	UploadDir    string `toml:"upload_dir"`
	ReportPath   string `toml:"report_path"`
	WorklistPath string `toml:"worklist_path"`
}

// Checks enumerates the optional comparisons a run performs.
type Checks struct {
	Images bool `toml:"images"`
	Videos bool `toml:"videos"`
	Export bool `toml:"export"`
}

// Marketplace contains settings for the public listing source.
type Marketplace struct {
	ImageHost            string  `toml:"image_host"`
	UserAgent            string  `toml:"user_agent"`
	RequestRate          float64 `toml:"request_rate"`
	RequestBurst         int     `toml:"request_burst"`
	PageTimeoutSeconds   int     `toml:"page_timeout_seconds"`
	GalleryFallbackCount int     `toml:"gallery_fallback_count"`
	CatalogPath          string  `toml:"catalog_path"`
}

// PIM contains settings for the product-information-management source.
type PIM struct {
	BaseURL                  string `toml:"base_url"`
	Username                 string `toml:"username"`
	Password                 string `toml:"password"`
	ApprovedStatus           string `toml:"approved_status"`
	LoginPath                string `toml:"login_path"`
	GalleryPath              string `toml:"gallery_path"`
	ExportPath               string `toml:"export_path"`
	ArchiveTimeoutSeconds    int    `toml:"archive_timeout_seconds"`
	ExportTimeoutSeconds     int    `toml:"export_timeout_seconds"`
	VideoProbeTimeoutSeconds int    `toml:"video_probe_timeout_seconds"`
}

// Downloads controls per-asset retry behaviour.
type Downloads struct {
	Retries        int `toml:"retries"`
	BackoffSeconds int `toml:"backoff_seconds"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Worklist names the columns holding each item's two locators.
type Worklist struct {
	SourceAColumn string `toml:"source_a_column"`
	SourceBColumn string `toml:"source_b_column"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for a parity run.
//
// Configuration sections by subsystem:
//   - Paths: state, staging, download drop, upload, report and work list
//   - Checks: image, video and corrective-export toggles
//   - Marketplace: listing fetch pacing, image host, catalog override
//   - PIM: endpoint, credentials, archive/export/probe timeouts
//   - Downloads: per-image retry policy
//   - Worklist: locator column names
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Checks        Checks        `toml:"checks"`
	Marketplace   Marketplace   `toml:"marketplace"`
	PIM           PIM           `toml:"pim"`
	Downloads     Downloads     `toml:"downloads"`
	Worklist      Worklist      `toml:"worklist"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/parity/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parity.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.StagingDir, c.Paths.DownloadDir, c.Paths.UploadDir}
	if dir := filepath.Dir(c.Paths.ReportPath); dir != "" && dir != "." {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogPath is the run log written next to the history database.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "parity.log")
}

// HistoryPath is the SQLite run ledger.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath guards against two runs sharing sessions and the download folder.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "parity.lock")
}

// FFprobeBinary returns the ffprobe executable name used for video probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
