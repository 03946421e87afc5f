// Package process reads the live process table from procfs.
package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"streampresence/pkg/window"
)

// DefaultRoot is the procfs mount point.
const DefaultRoot = "/proc"

// Lister lists processes under a procfs root.
type Lister struct {
	root string
}

// NewLister returns a lister reading root, or /proc when root is empty.
func NewLister(root string) *Lister {
	if root == "" {
		root = DefaultRoot
	}
	return &Lister{root: root}
}

// IsAvailable reports whether the procfs root exists.
func (l *Lister) IsAvailable() bool {
	_, err := os.Stat(l.root)
	return err == nil
}

// ListProcesses returns every readable process. Processes that exit during
// the scan are skipped.
func (l *Lister) ListProcesses() ([]window.Process, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read process table")
	}

	var procs []window.Process
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		proc, err := l.Read(pid)
		if err != nil {
			continue
		}
		procs = append(procs, proc)
	}

	return procs, nil
}

// Read returns the name and command line of pid.
func (l *Lister) Read(pid int) (window.Process, error) {
	dir := filepath.Join(l.root, strconv.Itoa(pid))

	statData, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return window.Process{}, errors.Wrapf(err, "failed to read stat of %d", pid)
	}

	proc := window.Process{PID: pid, Name: parseStatName(string(statData))}

	if cmdData, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		proc.Cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdData), "\x00", " "))
	}

	return proc, nil
}

// Name returns the process name of pid, or "" when it cannot be read.
func (l *Lister) Name(pid int) string {
	if pid <= 0 {
		return ""
	}
	proc, err := l.Read(pid)
	if err != nil {
		return ""
	}
	return proc.Name
}

// parseStatName extracts comm from a stat line. comm may itself contain
// parentheses, so the last closing one ends it.
func parseStatName(stat string) string {
	start := strings.Index(stat, "(")
	end := strings.LastIndex(stat, ")")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return stat[start+1 : end]
}
