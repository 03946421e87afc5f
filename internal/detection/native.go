package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

// Background windows with these markers are never streaming apps.
var nativeIgnored = []string{".env", "settings", "cursor", "code editor"}

// NativeCollector scans every top-level window for a service brand.
type NativeCollector struct {
	enum window.Enumerator
	log  logrus.FieldLogger
}

func NewNativeCollector(enum window.Enumerator, log logrus.FieldLogger) *NativeCollector {
	return &NativeCollector{enum: enum, log: log}
}

func (c *NativeCollector) Name() string { return "native-app" }

func (c *NativeCollector) Collect(ctx context.Context, active window.Handle) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	windows, err := c.enum.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	var cands []Candidate
	for _, w := range windows {
		if w.Title == "" {
			continue
		}
		foreground := active != 0 && w.Handle == active
		if !foreground && containsAny(strings.ToLower(w.Title), nativeIgnored) {
			continue
		}
		svc := brandOf(w.Title)
		if svc == media.ServiceNone {
			continue
		}
		src := media.SourceBackgroundWindow
		if foreground {
			src = media.SourceActiveWindow
		}
		cands = append(cands, fromWindow(w, svc, src, active))
	}
	return cands, nil
}
