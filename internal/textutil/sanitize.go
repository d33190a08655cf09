package textutil

import "strings"

// SanitizeToken turns an item ID into a lowercase token that is safe as a
// file or directory name. ASCII letters, digits, '-' and '_' survive; every
// other rune becomes '_'. Leading and trailing separators are trimmed, and an
// empty result becomes "unknown" so two blank IDs still get a usable path.
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}
