// Package hybrid combines a display-server window source with the procfs
// process table. Without a window source it still lists processes.
package hybrid

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"streampresence/pkg/integrations/process"
	"streampresence/pkg/integrations/wayland"
	"streampresence/pkg/integrations/x11"
	"streampresence/pkg/window"
)

// ErrNoWindowSource is returned by window queries when only the process
// table is available.
var ErrNoWindowSource = errors.New("no window source available")

// ProcessLister is the process half of an enumerator.
type ProcessLister interface {
	ListProcesses() ([]window.Process, error)
}

// Enumerator implements window.Enumerator
type Enumerator struct {
	windows window.Source
	procs   ProcessLister
	log     logrus.FieldLogger
}

var _ window.Enumerator = (*Enumerator)(nil)

// New combines source, which may be nil, with procs.
func New(source window.Source, procs ProcessLister, log logrus.FieldLogger) *Enumerator {
	return &Enumerator{windows: source, procs: procs, log: log}
}

// NewEnumerator picks the window source for the current session
func NewEnumerator(log logrus.FieldLogger) (*Enumerator, error) {
	procs := process.NewLister("")
	if !procs.IsAvailable() {
		return nil, fmt.Errorf("process table unavailable at %s", process.DefaultRoot)
	}

	source := detectWindowSource(procs, log)
	if source != nil {
		log.WithField("display_server", source.DisplayServer()).Info("Window source initialized")
	} else {
		log.Warn("Window source unavailable, using process-based detection only")
	}

	return New(source, procs, log), nil
}

func detectWindowSource(procs *process.Lister, log logrus.FieldLogger) window.Source {
	if os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		src, err := wayland.NewEnumerator(procs)
		if err == nil {
			return src
		}
		log.WithError(err).Debug("Wayland window source unavailable")
	}

	// XWayland clients are still reachable over X11
	if os.Getenv("DISPLAY") != "" {
		src, err := x11.NewEnumerator(procs)
		if err == nil {
			return src
		}
		log.WithError(err).Debug("X11 window source unavailable")
	}

	return nil
}

// ListWindows returns the window source's windows
func (e *Enumerator) ListWindows() ([]window.Window, error) {
	if e.windows == nil {
		return nil, ErrNoWindowSource
	}
	return e.windows.ListWindows()
}

// ActiveWindow returns the window source's foreground window
func (e *Enumerator) ActiveWindow() (window.Window, error) {
	if e.windows == nil {
		return window.Window{}, ErrNoWindowSource
	}
	return e.windows.ActiveWindow()
}

// ListProcesses returns the live process table
func (e *Enumerator) ListProcesses() ([]window.Process, error) {
	return e.procs.ListProcesses()
}

// IsVisible reports visibility through the window source
func (e *Enumerator) IsVisible(h window.Handle) bool {
	if e.windows == nil {
		return false
	}
	return e.windows.IsVisible(h)
}

// DisplayServer returns the window source type or "process-based"
func (e *Enumerator) DisplayServer() string {
	if e.windows == nil {
		return "process-based"
	}
	return e.windows.DisplayServer()
}

// Close closes the window source
func (e *Enumerator) Close() error {
	if e.windows == nil {
		return nil
	}
	if err := e.windows.Close(); err != nil {
		e.log.WithError(err).Warn("Error closing window source")
		return err
	}
	return nil
}
