package detector

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestNew(t *testing.T) {
	log, _ := test.NewNullLogger()
	enum, err := New(log)
	if err != nil {
		t.Logf("New() returned error (may be expected): %v", err)
		return
	}
	defer enum.Close()

	displayServer := enum.DisplayServer()
	t.Logf("Detected display server: %s", displayServer)

	switch displayServer {
	case "x11", "wayland", "process-based":
	default:
		t.Errorf("DisplayServer() = %s, want x11, wayland or process-based", displayServer)
	}

	if _, err := enum.ListProcesses(); err != nil {
		t.Errorf("ListProcesses() error: %v", err)
	}
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		expected       string
	}{
		{"Wayland session", "wayland", "wayland-0", "", "wayland"},
		{"X11 session", "x11", "", ":0", "x11"},
		{"Unknown session", "", "", "", "unknown"},
		{"Wayland display set", "", "wayland-1", "", "wayland"},
		{"X11 display set", "", "", ":1", "x11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_SESSION_TYPE", tt.sessionType)
			t.Setenv("WAYLAND_DISPLAY", tt.waylandDisplay)
			t.Setenv("DISPLAY", tt.x11Display)

			if got := DetectDisplayServer(); got != tt.expected {
				t.Errorf("DetectDisplayServer() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestNewWithoutDisplay(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", "")

	log, _ := test.NewNullLogger()
	enum, err := New(log)
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	defer enum.Close()

	if enum.DisplayServer() != "process-based" {
		t.Errorf("DisplayServer() = %s, want process-based", enum.DisplayServer())
	}
}
