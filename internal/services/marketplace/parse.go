package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listingparity/internal/snapshot"
)

// minBullets is the bullet count below which a page is considered not fully
// rendered and is fetched again.
const minBullets = 3

var (
	colorImagesPattern = regexp.MustCompile(`colorImages["'\s:]*:\s*{\s*["']initial["']:\s*(\[[^\]]*\])`)
	hiResPattern       = regexp.MustCompile(`"hiRes"\s*:\s*"([^"]+)"`)
	durationPattern    = regexp.MustCompile(`"durationSeconds"\s*:\s*(\d+)`)
	countPattern       = regexp.MustCompile(`(\d+)`)
)

// ParseOptions carries the per-domain and per-run inputs of ParsePage.
type ParseOptions struct {
	// BrandStoreID must occur in the page for the brand-store check to pass.
	BrandStoreID string
	// ImageHost restricts gallery URLs to the marketplace CDN.
	ImageHost string
	// FallbackCount caps the gallery when no thumbnails can be counted.
	FallbackCount int
	Videos        bool
}

// Page is everything read from one listing.
type Page struct {
	Title        string
	Bullets      []string
	HasManual    bool
	StoreCorrect bool
	Videos       snapshot.Videos
	ImageURLs    []string
	GallerySize  int
}

// Complete reports whether the listing rendered far enough to compare.
func (p Page) Complete() bool {
	return p.Title != "" && len(p.Bullets) >= minBullets
}

// ParsePage extracts a listing from raw HTML.
func ParsePage(html []byte, opts ParseOptions) (Page, error) {
	if len(html) == 0 {
		return Page{}, fmt.Errorf("empty page")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	raw := string(html)

	page := Page{
		Title:     normSpace(doc.Find("#productTitle").First().Text()),
		Bullets:   bullets(doc),
		HasManual: hasManual(doc),
	}
	if id := strings.TrimSpace(opts.BrandStoreID); id != "" {
		page.StoreCorrect = strings.Contains(raw, id)
	}
	if opts.Videos {
		page.Videos = videos(doc, raw)
	}

	page.GallerySize = doc.Find("#altImages li.imageThumbnail").Length()
	limit := page.GallerySize
	if limit == 0 {
		limit = opts.FallbackCount
	}
	page.ImageURLs = galleryURLs(raw, opts.ImageHost, limit)
	return page, nil
}

func bullets(doc *goquery.Document) []string {
	out := []string{}
	doc.Find("#feature-bullets ul li span.a-list-item").Each(func(_ int, s *goquery.Selection) {
		if text := normSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// hasManual prefers the product-docs widget and falls back to any PDF link.
func hasManual(doc *goquery.Document) bool {
	isPDF := func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "(PDF)")
	}
	if doc.Find("a[id^='product-docs-btf-ingress-']").FilterFunction(isPDF).Length() > 0 {
		return true
	}
	return doc.Find("a").FilterFunction(isPDF).Length() > 0
}

// videos counts the gallery's video trigger and reads the embedded durations.
// A listing without a trigger has no videos.
func videos(doc *goquery.Document, raw string) snapshot.Videos {
	var trigger string
	doc.Find("#altImages li, #imageBlockVariations li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		img := li.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			alt, _ := s.Attr("alt")
			return strings.Contains(src, "play") || strings.Contains(src, "video") || strings.Contains(alt, "Play video")
		})
		if img.Length() == 0 {
			return true
		}
		text := normSpace(li.Text())
		if strings.Contains(strings.ToUpper(text), "VIDEO") && len(text) < 30 {
			trigger = text
			return false
		}
		return true
	})
	if trigger == "" {
		return snapshot.Videos{Durations: []string{}}
	}

	count := 1
	if m := countPattern.FindStringSubmatch(trigger); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			count = n
		}
	}
	return snapshot.Videos{Count: count, Durations: pickDurations(raw, count)}
}

// pickDurations returns the first count distinct durations in page order, or
// the first count raw values when fewer distinct ones exist.
func pickDurations(raw string, count int) []string {
	matches := durationPattern.FindAllStringSubmatch(raw, -1)
	all := make([]string, 0, len(matches))
	for _, m := range matches {
		seconds, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		all = append(all, fmt.Sprintf("%d:%02d", seconds/60, seconds%60))
	}

	unique := make([]string, 0, count)
	seen := map[string]struct{}{}
	for _, d := range all {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		unique = append(unique, d)
		if len(unique) == count {
			return unique
		}
	}
	return all[:min(count, len(all))]
}

// galleryURLs reads the high-resolution image list, keeps URLs served from
// host, removes duplicates, and caps the result at limit.
func galleryURLs(raw, host string, limit int) []string {
	candidates := colorImageURLs(raw)
	if candidates == nil {
		for _, m := range hiResPattern.FindAllStringSubmatch(raw, -1) {
			candidates = append(candidates, m[1])
		}
	}

	out := []string{}
	seen := map[string]struct{}{}
	for _, u := range candidates {
		u = strings.TrimSpace(u)
		if u == "" || (host != "" && !strings.Contains(u, host)) {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func colorImageURLs(raw string) []string {
	m := colorImagesPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var entries []struct {
		HiRes string `json:"hiRes"`
		Large string `json:"large"`
	}
	if err := json.Unmarshal([]byte(m[1]), &entries); err != nil {
		return nil
	}
	out := []string{}
	for _, e := range entries {
		switch {
		case e.HiRes != "":
			out = append(out, e.HiRes)
		case e.Large != "":
			out = append(out, e.Large)
		}
	}
	return out
}

// Interstitial is the "continue shopping" gate a marketplace may show before
// the first listing of a session.
type Interstitial struct {
	Method string
	Action string
	Values url.Values
}

// FindInterstitial locates a continue-shopping form or link. The returned
// action is resolved against pageURL.
func FindInterstitial(html []byte, pageURL string) (Interstitial, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Interstitial{}, false
	}
	if doc.Find("#productTitle").Length() > 0 {
		return Interstitial{}, false
	}

	var found Interstitial
	var ok bool
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if !mentionsContinue(form) {
			return true
		}
		action, _ := form.Attr("action")
		method, _ := form.Attr("method")
		values := url.Values{}
		form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
			name, _ := in.Attr("name")
			value, _ := in.Attr("value")
			values.Add(name, value)
		})
		found = Interstitial{
			Method: strings.ToUpper(strings.TrimSpace(method)),
			Action: resolveURL(pageURL, action),
			Values: values,
		}
		if found.Method == "" {
			found.Method = "GET"
		}
		ok = true
		return false
	})
	if ok {
		return found, true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(a.Text()), "continue shopping") {
			return true
		}
		href, _ := a.Attr("href")
		found = Interstitial{Method: "GET", Action: resolveURL(pageURL, href)}
		ok = true
		return false
	})
	return found, ok
}

func mentionsContinue(form *goquery.Selection) bool {
	if strings.Contains(strings.ToLower(form.Find("button").Text()), "continue shopping") {
		return true
	}
	match := false
	form.Find("input").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		value, _ := in.Attr("value")
		match = strings.Contains(strings.ToLower(value), "continue shopping")
		return !match
	})
	return match
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return base
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
