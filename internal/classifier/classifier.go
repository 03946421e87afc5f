// Package classifier rejects window titles that mention a streaming service
// without being a playback window: documentation, repositories, editors,
// settings dialogs and this application's own windows.
package classifier

import (
	"strings"
	"unicode/utf8"

	"streampresence/pkg/media"
)

// MinTitleLength is the shortest record title accepted from title-only
// evidence.
const MinTitleLength = 5

// Rule is a named group of case-insensitive substrings.
type Rule struct {
	Name    string
	Markers []string
}

// Rules are evaluated in order; the first matching marker decides.
var Rules = []Rule{
	{Name: "documentation", Markers: []string{
		"readme", ".md", "markdown", "documentation", "copyright", "tutorial",
		"changelog",
	}},
	{Name: "source-control", Markers: []string{
		"github", "gitlab", "bitbucket", "repository", "pull request", "merge request",
	}},
	{Name: "editor", Markers: []string{
		"visual studio", "vscode", "vscodium", "cursor", "code editor", "notepad",
		"sublime text", "jetbrains", "goland", "pycharm", "intellij", "neovim",
		"emacs", "gedit", "editor",
	}},
	{Name: "config-file", Markers: []string{
		".env", "settings.json", ".json", ".yaml", ".yml", ".toml", ".xml",
		".ini", ".conf", ".txt", ".log", ".go", ".py",
	}},
	{Name: "os-chrome", Markers: []string{
		"settings", "preferences", "configure", "gnome-terminal", "konsole", "xterm",
		"alacritty", "command prompt", "file manager", "nautilus", "thunar",
		"installer", "download", "upload", "sign in", "login", "discord",
	}},
	{Name: "self", Markers: []string{
		"streampresence", "disney + & netflix", "rich presence", "discord presence",
	}},
}

// Verdict explains a classification.
type Verdict struct {
	Genuine bool
	Rule    string
	Marker  string
}

// Classify applies the rules to rawTitle, or to the record title when no raw
// title is known. Records corroborated by a running service process bypass
// every rule.
func Classify(rec media.Record, rawTitle string) Verdict {
	if !rec.Watching {
		return Verdict{Rule: "not-watching"}
	}
	if rec.DetectedBy == media.SourceSystemProcess {
		return Verdict{Genuine: true}
	}

	subject := rawTitle
	if strings.TrimSpace(subject) == "" {
		subject = rec.Title
	}
	subject = strings.ToLower(subject)

	for _, rule := range Rules {
		for _, marker := range rule.Markers {
			if strings.Contains(subject, marker) {
				return Verdict{Rule: rule.Name, Marker: marker}
			}
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(rec.Title)) < MinTitleLength {
		return Verdict{Rule: "too-short"}
	}
	return Verdict{Genuine: true}
}

// IsGenuineMedia reports whether rec should be broadcast.
func IsGenuineMedia(rec media.Record, rawTitle string) bool {
	return Classify(rec, rawTitle).Genuine
}
