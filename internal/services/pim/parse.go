package pim

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listingparity/internal/snapshot"
)

const (
	minBulletLen = 3
	maxBulletLen = 350
)

var (
	languageIDPattern = regexp.MustCompile(`languageID=(\d+)`)
	bulletNamePattern = regexp.MustCompile(`(?i)(bulletPoints|reasonsToBuy)`)
	bulletNoise       = regexp.MustCompile(`(?i)(https?://|www\.|insert|delete|make default|\d{4}-\d{2}-\d{2})`)
	uiWords           = map[string]struct{}{"edit": {}, "delete": {}, "make default": {}}
)

// Record is the language-specific content of one PIM product page.
type Record struct {
	LanguageID string
	Status     string
	// BlockFound is false when no language block could be resolved; Title
	// and Bullets are then placeholders.
	BlockFound bool
	Title      string
	Bullets    []string
	Videos     []VideoRef
}

// VideoRef is one entry of the language's video list. URL is empty when the
// entry carries no playable link.
type VideoRef struct {
	URL string
}

// LanguageID extracts the languageID query parameter from a PIM locator.
func LanguageID(locator string) string {
	if m := languageIDPattern.FindStringSubmatch(locator); m != nil {
		return m[1]
	}
	return ""
}

// ParseRecord reads a PIM product page for the given language.
func ParseRecord(html []byte, languageID string) (Record, error) {
	if len(html) == 0 {
		return Record{}, fmt.Errorf("empty page")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Record{}, fmt.Errorf("parse html: %w", err)
	}

	rec := Record{
		LanguageID: languageID,
		Status:     snapshot.NotFound,
		Title:      snapshot.NotFound,
		Bullets:    []string{},
	}
	if languageID != "" {
		if status := normSpace(doc.Find("#approvalStatus-" + languageID).First().Text()); status != "" {
			rec.Status = status
		}
		rec.Videos = videoRefs(doc, languageID)
	}

	block := languageBlock(doc, languageID)
	if block == nil {
		return rec, nil
	}
	rec.BlockFound = true
	if value, ok := block.Find(`input[id*="[name]"]`).First().Attr("value"); ok {
		if title := strings.TrimSpace(value); title != "" {
			rec.Title = title
		}
	}
	rec.Bullets = bullets(block)
	return rec, nil
}

// languageBlock resolves the tab holding languageID's fields: the pane a
// language tab button targets, then an element whose id names the language,
// then whichever tab pane is active.
func languageBlock(doc *goquery.Document, languageID string) *goquery.Selection {
	if languageID != "" {
		var target string
		doc.Find("button[data-lang], a[data-lang]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if lang, _ := s.Attr("data-lang"); lang == languageID {
				target, _ = s.Attr("data-bs-target")
				return false
			}
			return true
		})
		if target = strings.TrimPrefix(strings.TrimSpace(target), "#"); target != "" {
			if sel := doc.Find(`[id="` + target + `"]`).First(); sel.Length() > 0 {
				return sel
			}
		}
		if sel := doc.Find(`[id*="language_` + languageID + `"]`).First(); sel.Length() > 0 {
			return sel
		}
	}
	if sel := doc.Find("div.tab-pane.active").First(); sel.Length() > 0 {
		return sel
	}
	return nil
}

func bullets(block *goquery.Selection) []string {
	out := []string{}
	seen := map[string]struct{}{}
	block.Find("input[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if !bulletNamePattern.MatchString(name) {
			return
		}
		text, _ := s.Attr("value")
		if strings.TrimSpace(text) == "" {
			text = s.Text()
		}
		text = strings.TrimSpace(text)
		if !keepBullet(text) {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

// keepBullet drops editor chrome that shares the bullet field names.
func keepBullet(text string) bool {
	if n := len([]rune(text)); n < minBulletLen || n > maxBulletLen {
		return false
	}
	if bulletNoise.MatchString(text) {
		return false
	}
	_, ui := uiWords[strings.ToLower(text)]
	return !ui
}

func videoRefs(doc *goquery.Document, languageID string) []VideoRef {
	refs := []VideoRef{}
	doc.Find("#videoList-" + languageID + " i.fa-circle-play").Each(func(_ int, icon *goquery.Selection) {
		link := icon.Closest("a")
		ref := VideoRef{}
		for _, attr := range []string{"data-video-url", "data-src", "href"} {
			if v, ok := link.Attr(attr); ok {
				v = strings.TrimSpace(v)
				if v != "" && v != "#" && !strings.HasPrefix(v, "javascript:") {
					ref.URL = v
					break
				}
			}
		}
		refs = append(refs, ref)
	})
	return refs
}

// ExportOption returns the value of the export selector option whose label
// contains locale.
func ExportOption(html []byte, locale string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil || strings.TrimSpace(locale) == "" {
		return "", false
	}
	var value string
	var found bool
	doc.Find("select#export_to_amazon_selector option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if !strings.Contains(opt.Text(), locale) {
			return true
		}
		value, found = opt.Attr("value")
		return !found
	})
	return value, found
}

// LoginRejected reports whether html still shows the login form.
func LoginRejected(html []byte) bool {
	return bytes.Contains(html, []byte(passwordField))
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
