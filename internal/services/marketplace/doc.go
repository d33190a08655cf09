// Package marketplace reads public product listings: title, feature
// bullets, user-manual and brand-store presence, promotional video durations,
// and the high-resolution gallery image URLs.
//
// Fetching and parsing are split. ParsePage is a pure function of the page
// HTML so extraction can be tested against fixtures; Client adds the session,
// the first-item interstitial, the incomplete-page retry, and image downloads.
package marketplace
