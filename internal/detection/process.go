package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

// processProfile describes how a service shows up in the process table.
type processProfile struct {
	service   media.Service
	dedicated []string
	cmdTerms  []string
}

var processProfiles = []processProfile{
	{
		service:   media.DisneyPlus,
		dedicated: []string{"disneyplus", "disney+", "disney-plus"},
		cmdTerms:  []string{"disneyplus", "disney"},
	},
	{
		service:   media.Netflix,
		dedicated: []string{"netflix", "netflix-desktop"},
		cmdTerms:  []string{"netflix"},
	},
}

// Generic web-app hosts only count when their command line or a window
// title names the service.
var genericHosts = map[string]bool{
	"electron":         true,
	"webapp-container": true,
	"nativefier":       true,
}

var (
	multiTabMarkers = []string{"more pages", "more tab", "and tab"}
	multiTabIgnored = []string{
		"readme", ".md", "documentation", "github",
		"developer", "programming", "code", "disney + & netflix",
	}
)

// ProcessCollector finds running streaming apps in the process table.
// Every record it returns is tagged as system corroborated.
type ProcessCollector struct {
	enum window.Enumerator
	log  logrus.FieldLogger
}

func NewProcessCollector(enum window.Enumerator, log logrus.FieldLogger) *ProcessCollector {
	return &ProcessCollector{enum: enum, log: log}
}

func (c *ProcessCollector) Name() string { return media.SourceSystemProcess.String() }

func (c *ProcessCollector) Collect(ctx context.Context, active window.Handle) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	procs, err := c.enum.ListProcesses()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	windows, err := c.enum.ListWindows()
	if err != nil {
		c.log.WithError(err).Debug("Window list unavailable, process evidence only")
		windows = nil
	}

	for _, profile := range processProfiles {
		if cand, ok := c.probe(profile, procs, windows, active); ok {
			return []Candidate{cand}, nil
		}
	}

	if cand, ok := c.multiTab(windows, active); ok {
		return []Candidate{cand}, nil
	}
	return nil, nil
}

func (c *ProcessCollector) probe(profile processProfile, procs []window.Process, windows []window.Window, active window.Handle) (Candidate, bool) {
	for _, p := range procs {
		name := strings.ToLower(p.Name)
		generic := genericHosts[name]
		if !generic && !equalsAny(name, profile.dedicated) {
			continue
		}
		if generic && !containsAny(strings.ToLower(p.Cmdline), profile.cmdTerms) {
			// Without a command line hint the host needs a branded window.
			if _, ok := brandedWindow(windows, profile.service); !ok {
				continue
			}
		}

		c.log.WithFields(logrus.Fields{"process": p.Name, "pid": p.PID, "service": profile.service}).
			Debug("Found streaming process")

		if w, ok := brandedWindow(windows, profile.service); ok {
			cand := fromWindow(w, profile.service, media.SourceSystemProcess, active)
			c.log.WithField("title", titleparse.SanitizeForLog(cand.Record.Title)).Info("Content detected from process window")
			return cand, true
		}
		return Candidate{Record: placeholder(profile.service, media.SourceSystemProcess)}, true
	}
	return Candidate{}, false
}

// multiTab recognizes a browser window whose title reports extra tabs next
// to a service name, which means a streaming tab exists behind it.
func (c *ProcessCollector) multiTab(windows []window.Window, active window.Handle) (Candidate, bool) {
	for _, w := range windows {
		if w.Title == "" || !containsAny(w.Title, multiTabMarkers) {
			continue
		}
		var svc media.Service
		switch {
		case strings.Contains(w.Title, string(media.Netflix)):
			svc = media.Netflix
		case strings.Contains(w.Title, string(media.DisneyPlus)):
			svc = media.DisneyPlus
		default:
			continue
		}
		if containsAny(strings.ToLower(w.Title), multiTabIgnored) {
			c.log.WithField("title", titleparse.SanitizeForLog(w.Title)).Info("Skipping false positive browser tab")
			continue
		}
		c.log.WithField("title", titleparse.SanitizeForLog(w.Title)).Infof("Found browser with %s tab", svc)
		rec := placeholder(svc, media.SourceSystemProcess)
		rec.Handle = w.Handle
		return Candidate{Record: rec, RawTitle: w.Title, Foreground: active != 0 && w.Handle == active}, true
	}
	return Candidate{}, false
}

func equalsAny(s string, names []string) bool {
	for _, n := range names {
		if s == n {
			return true
		}
	}
	return false
}

func brandedWindow(windows []window.Window, svc media.Service) (window.Window, bool) {
	for _, w := range windows {
		if strings.Contains(w.Title, string(svc)) {
			return w, true
		}
	}
	return window.Window{}, false
}
