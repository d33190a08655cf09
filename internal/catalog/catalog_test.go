package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingparity/internal/catalog"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	id, ok := c.BrandStore("amazon.de")
	require.True(t, ok)
	assert.Equal(t, "73DDF00A-668C-4A2A-A0C9-2B6DB76C09B9", id)

	locale, ok := c.ExportLocale("www.amazon.co.uk")
	require.True(t, ok)
	assert.Equal(t, "Amazon UK", locale)

	_, ok = c.BrandStore("amazon.ie")
	assert.False(t, ok, "amazon.ie has no brand store")
	_, ok = c.ExportLocale("ebay.de")
	assert.False(t, ok)
	assert.Len(t, c.Domains(), 16)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "amazon.de", catalog.DomainOf("https://www.Amazon.DE/dp/B0ABCDEFGH"))
	assert.Equal(t, "amazon.com.be", catalog.DomainOf("https://amazon.com.be/dp/x"))
	assert.Equal(t, "", catalog.DomainOf("::not a url"))
}

func TestLoadMergesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`marketplaces:
  - domain: www.amazon.de
    brand_store: CUSTOM-ID
    export_locale: Amazon DE
  - domain: amazon.ae
    export_locale: Amazon AE
`), 0o644))

	c, err := catalog.Load(path)
	require.NoError(t, err)
	id, _ := c.BrandStore("amazon.de")
	assert.Equal(t, "CUSTOM-ID", id)
	locale, ok := c.ExportLocale("amazon.ae")
	assert.True(t, ok)
	assert.Equal(t, "Amazon AE", locale)
	_, ok = c.BrandStore("amazon.fr")
	assert.True(t, ok, "defaults survive the merge")
}

func TestLoadRejectsEntryWithoutDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("marketplaces:\n  - brand_store: X\n"), 0o644))
	_, err := catalog.Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	_, ok := c.BrandStore("amazon.sg")
	assert.True(t, ok)
}
