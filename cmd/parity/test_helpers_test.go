package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"listingparity/internal/batch"
	"listingparity/internal/config"
	"listingparity/internal/snapshot"
	"listingparity/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	market     *testsupport.FakeMarketplace
	pim        *testsupport.FakePIM
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithChecks(false, false, false))
	cfg.Logging.Level = "error"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(filepath.Dir(cfg.Paths.StateDir), "parity.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		market:     testsupport.NewFakeMarketplace(t),
		pim:        testsupport.NewFakePIM(t),
	}
}

func (e *cliTestEnv) sources(context.Context) (batch.Sources, func(), error) {
	return batch.Sources{Marketplace: e.market, PIM: e.pim}, func() {}, nil
}

// addItem registers one item with both fakes and returns its work list row.
func (e *cliTestEnv) addItem(asin string, market, record snapshot.ProductSnapshot) []string {
	listing := "https://www.amazon.de/dp/" + asin
	locator := "https://pim.test/index.php?productID=" + asin + "&languageID=12"
	e.market.Add(listing, testsupport.FakeListing{Snapshot: market})
	e.pim.Add(locator, asin, testsupport.FakeRecord{Snapshot: record})
	return []string{listing, locator}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	ctx := newCommandContext(batch.WithSources(env.sources))
	cmd := newRootCommandWithContext(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n---\n%s", needle, haystack)
	}
}

func product(title string, bullets ...string) snapshot.ProductSnapshot {
	return snapshot.ProductSnapshot{Title: title, Bullets: bullets, Status: "Approved"}
}
