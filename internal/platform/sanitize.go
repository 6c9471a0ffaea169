package platform

import "strings"

// SanitizeFilename keeps ASCII letters, digits, space, '-' and '_'.
// Everything else, including path separators and non-ASCII text, is dropped.
func SanitizeFilename(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
