package titleparse

import (
	"strings"
	"unicode"
)

// SanitizeForLog returns a printable ASCII rendering of a window title.
// Non-ASCII runes are replaced with '?' so log sinks never see raw
// bidi or zero-width characters.
func SanitizeForLog(title string) string {
	if title == "" {
		return ""
	}
	title = Normalize(title)
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r < unicode.MaxASCII && (unicode.IsPrint(r) || r == ' '):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsPrint(r):
			b.WriteByte('?')
		}
	}
	return b.String()
}
