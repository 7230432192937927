package models

import (
	"strings"
	"unicode"
)

// Slugify derives a URL slug from a board title: lowercase ASCII letters and
// digits separated by single hyphens, truncated at a word boundary to
// SlugMaxLength.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) <= SlugMaxLength {
		return slug
	}
	truncated := slug[:SlugMaxLength]
	if i := strings.LastIndexByte(truncated, '-'); i > 0 {
		truncated = truncated[:i]
	}
	return strings.Trim(truncated, "-")
}
