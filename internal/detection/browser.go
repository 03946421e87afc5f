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

// Browsers maps browser executable names to display names.
var Browsers = map[string]string{
	"chrome":           "Chrome",
	"google-chrome":    "Chrome",
	"chromium":         "Chromium",
	"chromium-browser": "Chromium",
	"msedge":           "Edge",
	"microsoft-edge":   "Edge",
	"firefox":          "Firefox",
	"firefox-esr":      "Firefox",
	"brave":            "Brave",
	"brave-browser":    "Brave",
	"vivaldi-bin":      "Vivaldi",
	"opera":            "Opera",
}

var browserIgnored = []string{
	"readme", ".md", "documentation", "github", ".txt",
	"license", "coding", "programming", "developer",
}

// urlSignatures identify a service from an address shown in the title.
var urlSignatures = []struct {
	service media.Service
	markers []string
}{
	{media.DisneyPlus, []string{"disneyplus.com", "disney+"}},
	{media.Netflix, []string{"netflix.com"}},
}

// BrowserCollector scans windows owned by known browsers.
type BrowserCollector struct {
	enum window.Enumerator
	log  logrus.FieldLogger
}

func NewBrowserCollector(enum window.Enumerator, log logrus.FieldLogger) *BrowserCollector {
	return &BrowserCollector{enum: enum, log: log}
}

func (c *BrowserCollector) Name() string { return media.SourceBrowserTab.String() }

func (c *BrowserCollector) Collect(ctx context.Context, active window.Handle) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	windows, err := c.enum.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	var branded, bySignature []Candidate
	for _, w := range windows {
		if w.Title == "" {
			continue
		}
		if _, ok := Browsers[strings.ToLower(w.ProcessName)]; !ok {
			continue
		}
		lower := strings.ToLower(w.Title)
		if containsAny(lower, browserIgnored) {
			c.log.WithField("title", titleparse.SanitizeForLog(w.Title)).Debug("Skipping documentation tab")
			continue
		}

		if svc := browserBrand(w.Title); svc != media.ServiceNone {
			branded = append(branded, fromWindow(w, svc, media.SourceBrowserTab, active))
			continue
		}
		if svc := signatureOf(lower); svc != media.ServiceNone {
			rec := media.Record{
				Watching:   true,
				Service:    svc,
				Title:      titleparse.Clean(w.Title, svc),
				Type:       media.TypeUnknown,
				DetectedBy: media.SourceBrowserTab,
				Handle:     w.Handle,
			}
			bySignature = append(bySignature, Candidate{
				Record:     rec,
				RawTitle:   w.Title,
				Foreground: active != 0 && w.Handle == active,
			})
		}
	}
	return append(branded, bySignature...), nil
}

// browserBrand matches the branded tab titles the services set themselves.
func browserBrand(title string) media.Service {
	if strings.Contains(title, string(media.Netflix)) {
		return media.Netflix
	}
	lower := strings.ToLower(title)
	if strings.Contains(lower, "disney+") || strings.Contains(lower, "disneyplus") {
		return media.DisneyPlus
	}
	return media.ServiceNone
}

func signatureOf(lowerTitle string) media.Service {
	for _, sig := range urlSignatures {
		if containsAny(lowerTitle, sig.markers) {
			return sig.service
		}
	}
	return media.ServiceNone
}
