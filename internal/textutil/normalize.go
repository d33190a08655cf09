package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ignoredRunes are dropped during normalization; whitespace is dropped too.
const ignoredRunes = ".,;™©"

// Normalize canonicalizes free text for exact comparison. It is total and
// pure: the same input always yields the same output.
func Normalize(text string) string {
	lowered := cases.Lower(language.Und).String(strings.TrimSpace(text))
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsSpace(r) || strings.ContainsRune(ignoredRunes, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Equal reports whether a and b are identical after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
