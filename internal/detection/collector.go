// Package detection gathers streaming candidates from the desktop and fuses
// them into one record per poll cycle.
package detection

import (
	"context"
	"strings"

	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

// Candidate is one record proposed by a collector.
type Candidate struct {
	Record     media.Record
	RawTitle   string
	Foreground bool
}

// Collector is a single detection strategy. A collector returns no
// candidates when it finds nothing; an error means the strategy could not
// run at all. active is the foreground window resolved once for the whole
// cycle, zero when unknown.
type Collector interface {
	Name() string
	Collect(ctx context.Context, active window.Handle) ([]Candidate, error)
}

// Focus reports the foreground window and window visibility.
type Focus interface {
	ActiveWindow() (window.Window, error)
	IsVisible(h window.Handle) bool
}

// Select returns the foreground candidate when there is one, otherwise the
// first candidate in collection order.
func Select(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	for _, c := range cands {
		if c.Foreground {
			return c, true
		}
	}
	return cands[0], true
}

// brandOf returns the first service whose name appears verbatim in title.
func brandOf(title string) media.Service {
	for _, svc := range media.Services {
		if strings.Contains(title, string(svc)) {
			return svc
		}
	}
	return media.ServiceNone
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func fromWindow(w window.Window, svc media.Service, src media.Source, active window.Handle) Candidate {
	rec := titleparse.Parse(w.Title, svc)
	rec.DetectedBy = src
	rec.Handle = w.Handle
	return Candidate{
		Record:     rec,
		RawTitle:   w.Title,
		Foreground: active != 0 && w.Handle == active,
	}
}

func placeholder(svc media.Service, src media.Source) media.Record {
	return media.Record{
		Watching:   true,
		Service:    svc,
		Title:      svc.Placeholder(),
		Type:       media.TypeUnknown,
		DetectedBy: src,
	}
}

// activeHandle returns the foreground window handle or zero when it cannot
// be determined.
func activeHandle(focus Focus) window.Handle {
	if focus == nil {
		return 0
	}
	w, err := focus.ActiveWindow()
	if err != nil {
		return 0
	}
	return w.Handle
}
