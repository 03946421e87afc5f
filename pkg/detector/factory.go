// Package detector builds the window enumerator for the current session.
package detector

import (
	"os"

	"github.com/sirupsen/logrus"

	"streampresence/pkg/integrations/hybrid"
	"streampresence/pkg/window"
)

// New returns the enumerator for the running display server, falling back
// to process-only detection when no window source is reachable.
func New(log logrus.FieldLogger) (window.Enumerator, error) {
	enum, err := hybrid.NewEnumerator(log)
	if err != nil {
		return nil, err
	}
	return enum, nil
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
