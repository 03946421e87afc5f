package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Sandboxed clients expose the socket below the runtime directory.
var socketSubdirs = []string{
	"",
	"app/com.discordapp.Discord",
	"app/com.discordapp.DiscordCanary",
	"app/dev.vencord.Vesktop",
	"snap.discord",
	"snap.discord-canary",
}

// SocketCandidates lists every path a discord-ipc-N socket may live at, in
// the order they are tried.
func SocketCandidates() []string {
	var bases []string
	seen := map[string]bool{}
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(env); v != "" && !seen[v] {
			seen[v] = true
			bases = append(bases, v)
		}
	}
	if !seen["/tmp"] {
		bases = append(bases, "/tmp")
	}

	var paths []string
	for _, base := range bases {
		for _, sub := range socketSubdirs {
			for i := 0; i < 10; i++ {
				paths = append(paths, filepath.Join(base, sub, fmt.Sprintf("discord-ipc-%d", i)))
			}
		}
	}
	return paths
}

// DialSocket connects to the first reachable discord-ipc socket.
func DialSocket(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var lastErr error
	for _, path := range SocketCandidates() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, errors.Wrap(lastErr, "no discord ipc socket accepted the connection")
	}
	return nil, errors.New("no discord ipc socket found; is Discord running?")
}
