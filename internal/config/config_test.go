package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"listingparity/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PARITY_PIM_USERNAME", "")
	t.Setenv("PARITY_PIM_PASSWORD", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "parity", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if !filepath.IsAbs(cfg.Paths.ReportPath) {
		t.Fatalf("expected absolute report path, got %q", cfg.Paths.ReportPath)
	}
	if !cfg.Checks.Images || !cfg.Checks.Videos {
		t.Fatal("expected image and video checks enabled by default")
	}
	if cfg.Checks.Export {
		t.Fatal("expected export disabled by default")
	}
	if cfg.PIM.ApprovedStatus != "Approved" {
		t.Fatalf("unexpected approved status: %q", cfg.PIM.ApprovedStatus)
	}
	if cfg.Downloads.Retries != 3 || cfg.Downloads.BackoffSeconds != 2 {
		t.Fatalf("unexpected download policy: %+v", cfg.Downloads)
	}
	if cfg.PIM.ArchiveTimeoutSeconds != 120 {
		t.Fatalf("unexpected archive timeout: %d", cfg.PIM.ArchiveTimeoutSeconds)
	}
	if cfg.LogPath() != filepath.Join(tempHome, ".local", "share", "parity", "parity.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "parity.toml")

	type payload struct {
		Paths struct {
			StagingDir   string `toml:"staging_dir"`
			WorklistPath string `toml:"worklist_path"`
		} `toml:"paths"`
		Checks struct {
			Images bool `toml:"images"`
			Videos bool `toml:"videos"`
			Export bool `toml:"export"`
		} `toml:"checks"`
		PIM struct {
			BaseURL   string `toml:"base_url"`
			LoginPath string `toml:"login_path"`
		} `toml:"pim"`
		Worklist struct {
			SourceAColumn string `toml:"source_a_column"`
		} `toml:"worklist"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.StagingDir = filepath.Join(tempDir, "staging")
	custom.Paths.WorklistPath = filepath.Join(tempDir, "items.csv")
	custom.Checks.Images = false
	custom.Checks.Videos = true
	custom.Checks.Export = true
	custom.PIM.BaseURL = "https://pim.example.com/"
	custom.PIM.LoginPath = "login.php"
	custom.Worklist.SourceAColumn = " Listing_URL "
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.StagingDir != custom.Paths.StagingDir {
		t.Fatalf("unexpected staging dir: %q", cfg.Paths.StagingDir)
	}
	if cfg.Checks.Images || !cfg.Checks.Export {
		t.Fatalf("unexpected checks: %+v", cfg.Checks)
	}
	if cfg.PIM.BaseURL != "https://pim.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PIM.BaseURL)
	}
	if cfg.PIM.LoginPath != "/login.php" {
		t.Fatalf("expected leading slash, got %q", cfg.PIM.LoginPath)
	}
	if cfg.Worklist.SourceAColumn != "listing_url" {
		t.Fatalf("unexpected source a column: %q", cfg.Worklist.SourceAColumn)
	}
	if cfg.Worklist.SourceBColumn != "icepim_url" {
		t.Fatalf("unexpected source b column: %q", cfg.Worklist.SourceBColumn)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvVarFallbackForCredentials(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "parity.toml")
	if err := os.WriteFile(configPath, []byte("[pim]\nbase_url = \"https://pim.example.com\"\nusername = \"file-user\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PARITY_PIM_USERNAME", "env-user")
	t.Setenv("PARITY_PIM_PASSWORD", "env-pass")
	t.Setenv("PARITY_NTFY_TOPIC", "https://ntfy.sh/parity")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PIM.Username != "file-user" {
		t.Errorf("expected file username to win, got %q", cfg.PIM.Username)
	}
	if cfg.PIM.Password != "env-pass" {
		t.Errorf("expected password from env, got %q", cfg.PIM.Password)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/parity" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("expected credentials to validate: %v", err)
	}
}

func TestValidateCredentialsRequiresBoth(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateCredentials(); err == nil {
		t.Fatal("expected error without base url")
	}
	cfg.PIM.BaseURL = "https://pim.example.com"
	cfg.PIM.Username = "user"
	err := cfg.ValidateCredentials()
	if err == nil {
		t.Fatal("expected error without password")
	}
	if !strings.Contains(err.Error(), "PARITY_PIM_PASSWORD") {
		t.Fatalf("expected env hint in error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "PARITY_PIM_USERNAME") {
		t.Fatalf("sample config missing credential hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StagingDir, "parity") {
		t.Fatalf("expected staging dir to contain parity, got %q", cfg.Paths.StagingDir)
	}
	if cfg.Downloads.Retries != 3 {
		t.Fatalf("expected sample retries 3, got %d", cfg.Downloads.Retries)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero retries", func(c *config.Config) { c.Downloads.Retries = 0 }},
		{"negative backoff", func(c *config.Config) { c.Downloads.BackoffSeconds = -1 }},
		{"zero rate", func(c *config.Config) { c.Marketplace.RequestRate = 0 }},
		{"zero burst", func(c *config.Config) { c.Marketplace.RequestBurst = 0 }},
		{"zero archive timeout", func(c *config.Config) { c.PIM.ArchiveTimeoutSeconds = 0 }},
		{"relative base url", func(c *config.Config) { c.PIM.BaseURL = "pim.example.com" }},
		{"same columns", func(c *config.Config) { c.Worklist.SourceBColumn = c.Worklist.SourceAColumn }},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"empty image host", func(c *config.Config) { c.Marketplace.ImageHost = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
