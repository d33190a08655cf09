package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMarketplace()
	c.normalizePIM()
	c.normalizeWorklist()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if strings.TrimSpace(c.Paths.ReportPath) == "" {
		c.Paths.ReportPath = defaultReportPath
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.staging_dir", &c.Paths.StagingDir},
		{"paths.download_dir", &c.Paths.DownloadDir},
		{"paths.upload_dir", &c.Paths.UploadDir},
		{"paths.report_path", &c.Paths.ReportPath},
		{"paths.worklist_path", &c.Paths.WorklistPath},
		{"marketplace.catalog_path", &c.Marketplace.CatalogPath},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeMarketplace() {
	c.Marketplace.ImageHost = strings.ToLower(strings.TrimSpace(c.Marketplace.ImageHost))
	c.Marketplace.UserAgent = strings.TrimSpace(c.Marketplace.UserAgent)
	if c.Marketplace.UserAgent == "" {
		c.Marketplace.UserAgent = defaultUserAgent
	}
	if c.Marketplace.GalleryFallbackCount <= 0 {
		c.Marketplace.GalleryFallbackCount = defaultGalleryFallbackCount
	}
}

func (c *Config) normalizePIM() {
	c.PIM.BaseURL = strings.TrimRight(strings.TrimSpace(c.PIM.BaseURL), "/")
	c.PIM.Username = strings.TrimSpace(c.PIM.Username)
	if c.PIM.Username == "" {
		if value, ok := os.LookupEnv("PARITY_PIM_USERNAME"); ok {
			c.PIM.Username = strings.TrimSpace(value)
		}
	}
	if c.PIM.Password == "" {
		if value, ok := os.LookupEnv("PARITY_PIM_PASSWORD"); ok {
			c.PIM.Password = value
		}
	}
	c.PIM.ApprovedStatus = strings.TrimSpace(c.PIM.ApprovedStatus)
	if c.PIM.ApprovedStatus == "" {
		c.PIM.ApprovedStatus = defaultApprovedStatus
	}
	c.PIM.LoginPath = ensureLeadingSlash(c.PIM.LoginPath, defaultPIMLoginPath)
	c.PIM.GalleryPath = ensureLeadingSlash(c.PIM.GalleryPath, defaultPIMGalleryPath)
	c.PIM.ExportPath = ensureLeadingSlash(c.PIM.ExportPath, defaultPIMExportPath)
}

func (c *Config) normalizeWorklist() {
	c.Worklist.SourceAColumn = strings.ToLower(strings.TrimSpace(c.Worklist.SourceAColumn))
	if c.Worklist.SourceAColumn == "" {
		c.Worklist.SourceAColumn = defaultSourceAColumn
	}
	c.Worklist.SourceBColumn = strings.ToLower(strings.TrimSpace(c.Worklist.SourceBColumn))
	if c.Worklist.SourceBColumn == "" {
		c.Worklist.SourceBColumn = defaultSourceBColumn
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PARITY_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func ensureLeadingSlash(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		return "/" + value
	}
	return value
}
