package titleparse

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"streampresence/pkg/media"
)

// brandings are removed in order; longer separators come first so that
// " - Netflix" is not left behind as " -" by the bare " Netflix" rule.
var brandings = map[media.Service][]string{
	media.Netflix: {
		" - Netflix",
		" | Netflix",
		"Netflix - ",
		" Netflix",
	},
	media.DisneyPlus: {
		" | Disney+",
		" - Disney+",
		" – Disney+",
		"Disney+ - ",
		" Disney+",
	},
}

var browserChrome = []*regexp.Regexp{
	regexp.MustCompile(`\s+and \d+ more pages?.*`),
	regexp.MustCompile(`\s+- Personal.*`),
	regexp.MustCompile(`\s+- Microsoft.*Edge`),
	regexp.MustCompile(`\s+- Google Chrome`),
	regexp.MustCompile(`\s+- Chromium`),
	regexp.MustCompile(`\s+- Brave`),
	regexp.MustCompile(`\s+- (Mozilla )?Firefox`),
}

var (
	trailingOn = regexp.MustCompile(`\s+on\s*$`)
	leadingOn  = regexp.MustCompile(`^\s*on\s+`)
	interiorOn = regexp.MustCompile(`\s+on\s+`)
)

const separators = " |:-–—"

var invisible = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.Cf, r) || (unicode.IsControl(r) && r != '\t')
}))

// Normalize composes the title to NFC, drops zero-width and control
// characters and maps non-breaking spaces to plain spaces.
func Normalize(title string) string {
	t := transform.Chain(norm.NFC, invisible)
	out, _, err := transform.String(t, title)
	if err != nil {
		out = title
	}
	return strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\t' {
			return ' '
		}
		return r
	}, out)
}

// StripBranding removes service branding and browser chrome. It does not
// touch the standalone "on" artifact; see Clean.
func StripBranding(title string, service media.Service) string {
	for _, pattern := range brandings[service] {
		title = strings.ReplaceAll(title, pattern, "")
	}
	for _, re := range browserChrome {
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimPrefix(title, "Watch ")
}

// RemoveOn drops the leftover word "on" of truncated "Watching on X" titles.
func RemoveOn(title string) string {
	title = trailingOn.ReplaceAllString(title, "")
	title = leadingOn.ReplaceAllString(title, "")
	return interiorOn.ReplaceAllString(title, " ")
}

// TrimSeparators trims separator characters and spaces from both ends.
func TrimSeparators(title string) string {
	return strings.TrimSpace(strings.Trim(title, separators))
}

// Clean applies the full cleanup pipeline used before grammar matching and
// before rendering a title.
func Clean(title string, service media.Service) string {
	title = StripBranding(Normalize(title), service)
	title = RemoveOn(title)
	return TrimSeparators(title)
}
