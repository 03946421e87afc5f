package x11

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/jezek/xgb/xproto"

	"streampresence/pkg/integrations/process"
)

func encode(values ...uint32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return data
}

func TestDecodeWindows(t *testing.T) {
	got := decodeWindows(append(encode(0x1a00003, 0, 0x2c00001), 0xff))
	want := []xproto.Window{0x1a00003, 0x2c00001}
	if len(got) != len(want) {
		t.Fatalf("decodeWindows() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("decodeWindows()[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestHiddenState(t *testing.T) {
	atoms := decodeAtoms(encode(301, 305))

	tests := []struct {
		name string
		want xproto.Atom
		ok   bool
	}{
		{"hidden present", 305, true},
		{"hidden absent", 302, false},
		{"atom not interned", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsAtom(atoms, tt.want); got != tt.ok {
				t.Errorf("containsAtom(%d) = %v, want %v", tt.want, got, tt.ok)
			}
		})
	}
}

func TestSplitClass(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantInstance string
		wantClass    string
	}{
		{"instance and class", "Navigator\x00firefox\x00", "Navigator", "firefox"},
		{"instance only", "netflix\x00", "netflix", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, class := splitClass([]byte(tt.data))
			if instance != tt.wantInstance || class != tt.wantClass {
				t.Errorf("splitClass() = %q, %q; want %q, %q", instance, class, tt.wantInstance, tt.wantClass)
			}
		})
	}
}

func TestNewEnumerator(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("X11 display not available")
	}

	e, err := NewEnumerator(process.NewLister(""))
	if err != nil {
		t.Skipf("X server unreachable: %v", err)
	}
	defer e.Close()

	if e.DisplayServer() != "x11" {
		t.Errorf("DisplayServer() = %s, want x11", e.DisplayServer())
	}
	windows, err := e.ListWindows()
	if err != nil {
		t.Logf("ListWindows() error: %v", err)
	}
	for _, w := range windows {
		if w.Title == "" {
			t.Errorf("untitled window %#x listed", w.Handle)
		}
	}
}
