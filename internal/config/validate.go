package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMarketplace(); err != nil {
		return err
	}
	if err := c.validatePIM(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateWorklist(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateCredentials reports whether the PIM can be logged into. It is
// checked at run start rather than load time so `config show` works on a
// fresh install.
func (c *Config) ValidateCredentials() error {
	if c.PIM.BaseURL == "" {
		return errors.New("pim.base_url must be set")
	}
	if c.PIM.Username == "" || c.PIM.Password == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/parity/config.toml"
		}
		return fmt.Errorf("pim credentials are required. Set PARITY_PIM_USERNAME/PARITY_PIM_PASSWORD or edit %s (create with 'parity config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateMarketplace() error {
	if c.Marketplace.ImageHost == "" {
		return errors.New("marketplace.image_host must be set")
	}
	if c.Marketplace.RequestRate <= 0 {
		return errors.New("marketplace.request_rate must be positive")
	}
	if c.Marketplace.RequestBurst < 1 {
		return errors.New("marketplace.request_burst must be at least 1")
	}
	if c.Marketplace.PageTimeoutSeconds <= 0 {
		return errors.New("marketplace.page_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePIM() error {
	if c.PIM.BaseURL != "" {
		parsed, err := url.Parse(c.PIM.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("pim.base_url %q is not an absolute URL", c.PIM.BaseURL)
		}
	}
	if c.PIM.ArchiveTimeoutSeconds <= 0 {
		return errors.New("pim.archive_timeout_seconds must be positive")
	}
	if c.PIM.ExportTimeoutSeconds <= 0 {
		return errors.New("pim.export_timeout_seconds must be positive")
	}
	if c.PIM.VideoProbeTimeoutSeconds <= 0 {
		return errors.New("pim.video_probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDownloads() error {
	if c.Downloads.Retries < 1 {
		return errors.New("downloads.retries must be at least 1")
	}
	if c.Downloads.BackoffSeconds < 0 {
		return errors.New("downloads.backoff_seconds must not be negative")
	}
	if c.Downloads.TimeoutSeconds <= 0 {
		return errors.New("downloads.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorklist() error {
	if c.Worklist.SourceAColumn == c.Worklist.SourceBColumn {
		return fmt.Errorf("worklist.source_a_column and worklist.source_b_column must differ (both %q)", c.Worklist.SourceAColumn)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
