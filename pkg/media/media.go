// Package media defines the detection result shared by the parser, the
// classifier, fusion and the presence state machine.
package media

import (
	"fmt"
	"strings"

	"streampresence/pkg/window"
)

// Service identifies a supported streaming service.
type Service string

const (
	ServiceNone Service = ""
	Netflix     Service = "Netflix"
	DisneyPlus  Service = "Disney+"
)

// Services lists the supported services in probe order.
var Services = []Service{DisneyPlus, Netflix}

// ImageKey returns the static asset key uploaded to the presence application.
func (s Service) ImageKey() string {
	switch s {
	case Netflix:
		return "netflix"
	case DisneyPlus:
		return "disney"
	default:
		return ""
	}
}

// SiteURL returns the service's canonical site.
func (s Service) SiteURL() string {
	switch s {
	case Netflix:
		return "https://www.netflix.com"
	case DisneyPlus:
		return "https://www.disneyplus.com"
	default:
		return ""
	}
}

// Placeholder is the generic title used when content exists but cannot be identified.
func (s Service) Placeholder() string {
	return string(s) + " Content"
}

// Type is the coarse kind of media being watched.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeMovie   Type = "movie"
	TypeShow    Type = "show"
)

// Source records which strategy produced a record. It is used for trust
// weighting only and never leaves the process.
type Source int

const (
	SourceNone Source = iota
	SourceActiveWindow
	SourceBackgroundWindow
	SourceSystemProcess
	SourceBrowserTab
)

func (s Source) String() string {
	switch s {
	case SourceActiveWindow:
		return "active-window"
	case SourceBackgroundWindow:
		return "background-window"
	case SourceSystemProcess:
		return "system-process"
	case SourceBrowserTab:
		return "browser-tab"
	default:
		return "none"
	}
}

// Episode holds the episodic part of a show record.
type Episode struct {
	Season int
	Number int
	Title  string
}

// Record is the result of one detection cycle. A record that is not
// watching carries no other field; use NotWatching to build one.
type Record struct {
	Watching   bool
	Service    Service
	Title      string
	Type       Type
	Episode    *Episode
	DetectedBy Source
	Handle     window.Handle
}

// NotWatching returns the empty record.
func NotWatching() Record {
	return Record{}
}

// Stripped returns a copy without transient window state.
func (r Record) Stripped() Record {
	r.Handle = 0
	if r.Episode != nil {
		ep := *r.Episode
		r.Episode = &ep
	}
	return r
}

// SameContent reports whether both records describe the same service, title
// and episode position. Provenance and episode titles are ignored.
func (r Record) SameContent(o Record) bool {
	if r.Watching != o.Watching || r.Service != o.Service || r.Title != o.Title {
		return false
	}
	return SameEpisode(r.Episode, o.Episode)
}

// SameEpisode compares season and episode numbers; nil equals nil only.
func SameEpisode(a, b *Episode) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Season == b.Season && a.Number == b.Number
}

// StatusLine renders the secondary presence line.
func StatusLine(service Service, typ Type, ep *Episode) string {
	if typ == TypeShow && ep != nil && ep.Season > 0 && ep.Number > 0 {
		line := fmt.Sprintf("S%d:E%d", ep.Season, ep.Number)
		if t := strings.TrimSpace(ep.Title); t != "" {
			line += " - " + t
		}
		return line
	}
	return "Watching on " + string(service)
}

func (r Record) String() string {
	if !r.Watching {
		return "not watching"
	}
	if r.Episode != nil {
		return fmt.Sprintf("%s - %s S%d:E%d", r.Service, r.Title, r.Episode.Season, r.Episode.Number)
	}
	return fmt.Sprintf("%s - %s", r.Service, r.Title)
}
