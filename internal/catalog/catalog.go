// Package catalog maps marketplace domains to their brand-store identifier and
// PIM export locale.
//
// A default catalog is embedded; an operator file given by
// marketplace.catalog_path is merged over it, entry by entry.
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Marketplace describes one domain.
type Marketplace struct {
	Domain       string `yaml:"domain"`
	BrandStore   string `yaml:"brand_store"`
	ExportLocale string `yaml:"export_locale"`
}

type document struct {
	Marketplaces []Marketplace `yaml:"marketplaces"`
}

// Catalog is an immutable domain lookup.
type Catalog struct {
	byDomain map[string]Marketplace
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return parse(defaultCatalog)
}

// Load returns the embedded catalog with the file at path merged over it. An
// empty path yields the default.
func Load(path string) (*Catalog, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	override, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	for domain, entry := range override.byDomain {
		base.byDomain[domain] = entry
	}
	return base, nil
}

func parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byDomain: make(map[string]Marketplace, len(doc.Marketplaces))}
	for _, m := range doc.Marketplaces {
		m.Domain = canonicalDomain(m.Domain)
		if m.Domain == "" {
			return nil, fmt.Errorf("parse catalog: entry without domain")
		}
		m.BrandStore = strings.TrimSpace(m.BrandStore)
		m.ExportLocale = strings.TrimSpace(m.ExportLocale)
		c.byDomain[m.Domain] = m
	}
	return c, nil
}

// DomainOf returns the lowercase host of locator without a leading "www.".
func DomainOf(locator string) string {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return ""
	}
	return canonicalDomain(u.Hostname())
}

func canonicalDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// BrandStore returns the brand-store identifier for domain.
func (c *Catalog) BrandStore(domain string) (string, bool) {
	m, ok := c.byDomain[canonicalDomain(domain)]
	if !ok || m.BrandStore == "" {
		return "", false
	}
	return m.BrandStore, true
}

// ExportLocale returns the PIM export target for domain.
func (c *Catalog) ExportLocale(domain string) (string, bool) {
	m, ok := c.byDomain[canonicalDomain(domain)]
	if !ok || m.ExportLocale == "" {
		return "", false
	}
	return m.ExportLocale, true
}

// Domains lists known domains in sorted order.
func (c *Catalog) Domains() []string {
	out := make([]string, 0, len(c.byDomain))
	for d := range c.byDomain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
