// Package x11 enumerates top-level windows through EWMH properties on the
// root window.
package x11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"streampresence/pkg/integrations/process"
	"streampresence/pkg/window"
)

var atomNames = []string{
	"_NET_CLIENT_LIST",
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"_NET_WM_STATE",
	"_NET_WM_STATE_HIDDEN",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Enumerator implements window.Source over an X connection
type Enumerator struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
	procs *process.Lister
}

var _ window.Source = (*Enumerator)(nil)

// NewEnumerator connects to $DISPLAY. procs resolves window PIDs to process
// names.
func NewEnumerator(procs *process.Lister) (*Enumerator, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	e := &Enumerator{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
		procs: procs,
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		e.atoms[name] = reply.Atom
	}

	return e, nil
}

// DisplayServer returns "x11"
func (e *Enumerator) DisplayServer() string {
	return "x11"
}

// ListWindows returns the managed windows with a title, in stacking list order
func (e *Enumerator) ListWindows() ([]window.Window, error) {
	data, err := e.getProperty(e.root, e.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 4096)
	if err != nil {
		return nil, fmt.Errorf("failed to read client list: %w", err)
	}

	var windows []window.Window
	for _, id := range decodeWindows(data) {
		w := e.describe(id)
		if w.Title == "" {
			continue
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// ActiveWindow returns the focused top-level window
func (e *Enumerator) ActiveWindow() (window.Window, error) {
	for i := 0; i < 5; i++ {
		id := e.activeFromProperty()
		if id != 0 && e.hasName(id) {
			return e.describe(id), nil
		}

		id = e.activeFromInputFocus()
		if id != 0 && id != e.root {
			top := e.topLevelParent(id)
			if top != 0 && e.hasName(top) {
				return e.describe(top), nil
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	return window.Window{}, errors.New("no active window found")
}

// IsVisible reports whether the window is viewable and not hidden
func (e *Enumerator) IsVisible(h window.Handle) bool {
	id := xproto.Window(h)
	attrs, err := xproto.GetWindowAttributes(e.conn, id).Reply()
	if err != nil || attrs.MapState != xproto.MapStateViewable {
		return false
	}

	data, err := e.getProperty(id, e.atoms["_NET_WM_STATE"], xproto.AtomAtom, 64)
	if err != nil {
		return true
	}
	return !containsAtom(decodeAtoms(data), e.atoms["_NET_WM_STATE_HIDDEN"])
}

// Close closes the X connection
func (e *Enumerator) Close() error {
	e.conn.Close()
	return nil
}

func (e *Enumerator) describe(id xproto.Window) window.Window {
	pid := e.windowPID(id)
	name := ""
	if e.procs != nil {
		name = e.procs.Name(pid)
	}
	if name == "" {
		name, _ = splitClass(e.windowClass(id))
	}
	return window.Window{
		Handle:      window.Handle(id),
		Title:       e.windowName(id),
		ProcessName: name,
		PID:         pid,
	}
}

func (e *Enumerator) getProperty(id xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(e.conn, false, id, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (e *Enumerator) activeFromProperty() xproto.Window {
	data, err := e.getProperty(e.root, e.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (e *Enumerator) activeFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(e.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (e *Enumerator) topLevelParent(id xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(e.conn, id).Reply()
		if err != nil || reply.Parent == e.root || reply.Parent == 0 {
			return id
		}
		id = reply.Parent
	}
}

func (e *Enumerator) hasName(id xproto.Window) bool {
	return e.windowName(id) != ""
}

func (e *Enumerator) windowName(id xproto.Window) string {
	data, err := e.getProperty(id, e.atoms["_NET_WM_NAME"], e.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = e.getProperty(id, e.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (e *Enumerator) windowClass(id xproto.Window) []byte {
	data, err := e.getProperty(id, e.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return nil
	}
	return data
}

func (e *Enumerator) windowPID(id xproto.Window) int {
	data, err := e.getProperty(id, e.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data))
}

// decodeWindows splits a WINDOW[] property value.
func decodeWindows(data []byte) []xproto.Window {
	ids := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		if id := binary.LittleEndian.Uint32(data[i:]); id != 0 {
			ids = append(ids, xproto.Window(id))
		}
	}
	return ids
}

// decodeAtoms splits an ATOM[] property value.
func decodeAtoms(data []byte) []xproto.Atom {
	atoms := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		atoms = append(atoms, xproto.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return atoms
}

func containsAtom(atoms []xproto.Atom, want xproto.Atom) bool {
	if want == 0 {
		return false
	}
	for _, a := range atoms {
		if a == want {
			return true
		}
	}
	return false
}

// splitClass returns the instance and class of a WM_CLASS value.
func splitClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
