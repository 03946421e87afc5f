// Package wayland enumerates windows on wlroots compositors that expose
// their window tree over IPC (sway and Hyprland).
package wayland

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"streampresence/pkg/integrations/process"
	"streampresence/pkg/window"
)

// runner executes a compositor command and returns its stdout.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Enumerator implements window.Source for sway and Hyprland
type Enumerator struct {
	compositor string
	run        runner
	procs      *process.Lister

	mu      sync.Mutex
	visible map[window.Handle]bool
}

var _ window.Source = (*Enumerator)(nil)

// NewEnumerator detects the running compositor. It fails when the
// compositor has no supported IPC tool.
func NewEnumerator(procs *process.Lister) (*Enumerator, error) {
	compositor := detectCompositor()
	e := newEnumerator(compositor, execRunner, procs)
	if !e.IsAvailable() {
		return nil, fmt.Errorf("unsupported wayland compositor: %s", compositor)
	}
	return e, nil
}

func newEnumerator(compositor string, run runner, procs *process.Lister) *Enumerator {
	return &Enumerator{
		compositor: compositor,
		run:        run,
		procs:      procs,
		visible:    make(map[window.Handle]bool),
	}
}

// detectCompositor attempts to detect the Wayland compositor
func detectCompositor() string {
	if os.Getenv("SWAYSOCK") != "" {
		return "sway"
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland"
	}

	compositors := map[string]string{
		"sway":     "sway",
		"Hyprland": "hyprland",
	}
	for proc, name := range compositors {
		if err := exec.Command("pgrep", "-x", proc).Run(); err == nil {
			return name
		}
	}

	return "unknown"
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable checks if the compositor's IPC tool is installed
func (e *Enumerator) IsAvailable() bool {
	switch e.compositor {
	case "sway":
		return commandExists("swaymsg")
	case "hyprland":
		return commandExists("hyprctl")
	default:
		return false
	}
}

// Compositor returns the detected compositor name
func (e *Enumerator) Compositor() string {
	return e.compositor
}

// DisplayServer returns "wayland"
func (e *Enumerator) DisplayServer() string {
	return "wayland"
}

// ListWindows returns every titled window
func (e *Enumerator) ListWindows() ([]window.Window, error) {
	windows, _, err := e.snapshot()
	return windows, err
}

// ActiveWindow returns the focused window
func (e *Enumerator) ActiveWindow() (window.Window, error) {
	_, active, err := e.snapshot()
	if err != nil {
		return window.Window{}, err
	}
	if active == nil {
		return window.Window{}, fmt.Errorf("no focused window")
	}
	return *active, nil
}

// IsVisible reports the visibility seen by the last listing
func (e *Enumerator) IsVisible(h window.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible[h]
}

// Close cleans up resources
func (e *Enumerator) Close() error {
	return nil
}

func (e *Enumerator) snapshot() ([]window.Window, *window.Window, error) {
	var (
		entries []entry
		err     error
	)
	switch e.compositor {
	case "sway":
		entries, err = e.swayEntries()
	case "hyprland":
		entries, err = e.hyprlandEntries()
	default:
		err = fmt.Errorf("unsupported wayland compositor: %s", e.compositor)
	}
	if err != nil {
		return nil, nil, err
	}

	visible := make(map[window.Handle]bool, len(entries))
	windows := make([]window.Window, 0, len(entries))
	var active *window.Window
	for _, en := range entries {
		name := ""
		if e.procs != nil {
			name = e.procs.Name(en.pid)
		}
		if name == "" {
			name = en.app
		}
		w := window.Window{Handle: en.handle, Title: en.title, ProcessName: name, PID: en.pid}
		windows = append(windows, w)
		visible[en.handle] = en.visible
		if en.focused {
			focused := w
			active = &focused
		}
	}

	e.mu.Lock()
	e.visible = visible
	e.mu.Unlock()

	return windows, active, nil
}

// entry is one window as reported by a compositor.
type entry struct {
	handle  window.Handle
	title   string
	app     string
	pid     int
	visible bool
	focused bool
}

type swayNode struct {
	ID               int64  `json:"id"`
	Type             string `json:"type"`
	Name             string `json:"name"`
	PID              int    `json:"pid"`
	AppID            string `json:"app_id"`
	Focused          bool   `json:"focused"`
	Visible          bool   `json:"visible"`
	WindowProperties *struct {
		Class    string `json:"class"`
		Instance string `json:"instance"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (e *Enumerator) swayEntries() ([]entry, error) {
	output, err := e.run("swaymsg", "-t", "get_tree", "--raw")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(output)
}

// parseSwayTree flattens the sway tree into its application windows
func parseSwayTree(data []byte) ([]entry, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	var entries []entry
	var walk func(n swayNode)
	walk = func(n swayNode) {
		if n.PID > 0 && n.Name != "" && (n.Type == "con" || n.Type == "floating_con") {
			app := n.AppID
			if app == "" && n.WindowProperties != nil {
				app = n.WindowProperties.Class
			}
			entries = append(entries, entry{
				handle:  window.Handle(n.ID),
				title:   n.Name,
				app:     app,
				pid:     n.PID,
				visible: n.Visible,
				focused: n.Focused,
			})
		}
		for _, child := range n.Nodes {
			walk(child)
		}
		for _, child := range n.FloatingNodes {
			walk(child)
		}
	}
	walk(root)

	return entries, nil
}

type hyprClient struct {
	Address   string `json:"address"`
	Mapped    bool   `json:"mapped"`
	Hidden    bool   `json:"hidden"`
	Class     string `json:"class"`
	Title     string `json:"title"`
	PID       int    `json:"pid"`
	Workspace struct {
		ID int `json:"id"`
	} `json:"workspace"`
	FocusHistoryID int `json:"focusHistoryID"`
}

func (e *Enumerator) hyprlandEntries() ([]entry, error) {
	output, err := e.run("hyprctl", "clients", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandClients(output)
}

// parseHyprlandClients converts `hyprctl clients -j` output. Clients on
// special (scratchpad) workspaces have negative ids and count as hidden.
func parseHyprlandClients(data []byte) ([]entry, error) {
	var clients []hyprClient
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse hyprland clients: %w", err)
	}

	var entries []entry
	for _, c := range clients {
		if c.Title == "" {
			continue
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(c.Address, "0x"), 16, 64)
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			handle:  window.Handle(addr),
			title:   c.Title,
			app:     c.Class,
			pid:     c.PID,
			visible: c.Mapped && !c.Hidden && c.Workspace.ID >= 0,
			focused: c.FocusHistoryID == 0,
		})
	}
	return entries, nil
}
