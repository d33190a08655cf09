package worklist_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"listingparity/internal/services"
	"listingparity/internal/testsupport"
	"listingparity/internal/worklist"
)

func TestParseItemID(t *testing.T) {
	cases := []struct {
		locator string
		index   int
		want    string
	}{
		{"https://www.amazon.de/dp/B0ABCDEFGH?th=1", 1, "B0ABCDEFGH"},
		{"https://www.amazon.de/Some-Name/dp/B012345678/ref=x", 2, "B012345678"},
		{"https://www.amazon.de/dp/b0abcdefgh", 3, "unknown_3"},
		{"", 7, "unknown_7"},
	}
	for _, tc := range cases {
		if got := worklist.ParseItemID(tc.locator, tc.index); got != tc.want {
			t.Fatalf("ParseItemID(%q, %d) = %q, want %q", tc.locator, tc.index, got, tc.want)
		}
	}
}

func TestReadUsesAliasesAndSkipsBlankRows(t *testing.T) {
	input := "\ufeffsku,Marketplace_URL,pim_url\n" +
		"1,https://amazon.de/dp/B0ABCDEFGH,https://pim/p?id=1&languageID=2\n" +
		",,\n" +
		"2,https://amazon.fr/foo,https://pim/p?id=2\n"
	items, err := worklist.Read(strings.NewReader(input), worklist.Columns{})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "B0ABCDEFGH" || items[0].Index != 1 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].ID != "unknown_2" {
		t.Fatalf("expected positional fallback id, got %q", items[1].ID)
	}
	if items[1].SourceB != "https://pim/p?id=2" {
		t.Fatalf("unexpected source b: %q", items[1].SourceB)
	}
}

func TestReadPrefersConfiguredColumn(t *testing.T) {
	input := "listing,amazon_url,icepim_url\nhttps://a/dp/B000000001,https://a/dp/B000000002,p\n"
	items, err := worklist.Read(strings.NewReader(input), worklist.Columns{SourceA: "Listing"})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if items[0].ID != "B000000001" {
		t.Fatalf("expected configured column to win, got %q", items[0].ID)
	}
}

func TestReadHeaderOnlyYieldsNoItems(t *testing.T) {
	items, err := worklist.Read(strings.NewReader("amazon_url,icepim_url\n"), worklist.Columns{})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestReadMissingColumnIsSetupFailure(t *testing.T) {
	_, err := worklist.Read(strings.NewReader("url,other\nx,y\n"), worklist.Columns{})
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected setup failure, got %v", err)
	}
}

func TestLoadMissingFileIsSetupFailure(t *testing.T) {
	_, err := worklist.Load(filepath.Join(t.TempDir(), "missing.csv"), worklist.Columns{})
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected setup failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "links file not found") {
		t.Fatalf("expected operator-facing message, got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.csv")
	testsupport.WriteWorklist(t, path, []string{"amazon_url", "icepim_url"},
		[]string{"https://amazon.de/dp/B0ABCDEFGH", "https://pim/p?languageID=2"})
	items, err := worklist.Load(path, worklist.Columns{SourceA: "amazon_url", SourceB: "icepim_url"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(items) != 1 || items[0].SourceA != "https://amazon.de/dp/B0ABCDEFGH" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
