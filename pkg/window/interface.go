package window

// Handle identifies a top-level window for the lifetime of one detection cycle.
// Zero means "no window".
type Handle uint64

// Window represents a top-level window and the process that owns it
type Window struct {
	Handle      Handle
	Title       string
	ProcessName string
	PID         int
}

// Process represents an entry in the live process table
type Process struct {
	PID     int
	Name    string
	Cmdline string
}

// Source is implemented by display-server backends that can enumerate windows
type Source interface {
	// ListWindows returns every titled top-level window in enumeration order
	ListWindows() ([]Window, error)

	// ActiveWindow returns the current foreground window
	ActiveWindow() (Window, error)

	// IsVisible reports whether the window is mapped and not minimized
	IsVisible(h Handle) bool

	// DisplayServer returns the backend type ("x11", "wayland" or "process-based")
	DisplayServer() string

	// Close cleans up any resources used by the backend
	Close() error
}

// Enumerator is the interface that all window/process enumeration implementations must satisfy
type Enumerator interface {
	Source

	// ListProcesses returns the live process table
	ListProcesses() ([]Process, error)
}
