package utils

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Slugify turns a display name or title into a URL-safe creator page handle.
// Non-ASCII input is transliterated first so handles stay readable.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))

	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
