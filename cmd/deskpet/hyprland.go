package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// hyprlandBackend queries the cursor position over Hyprland's IPC socket.
//
// The compositor answers "cursorpos" with logical (already scaled)
// coordinates, so NeedsScaling is false. The protocol has no button bit;
// Pressed is always false (known limitation, matches the facility).
type hyprlandBackend struct {
	socketPath string
	last       Sample
}

func newHyprlandBackend(instanceSig string) (*hyprlandBackend, error) {
	if instanceSig == "" {
		return nil, errors.New("HYPRLAND_INSTANCE_SIGNATURE not set")
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}

	// Hyprland >= 0.40 keeps the socket under the runtime dir, older
	// versions under /tmp.
	candidates := []string{
		filepath.Join(runtimeDir, "hypr", instanceSig, ".socket.sock"),
		filepath.Join("/tmp", "hypr", instanceSig, ".socket.sock"),
	}

	b := &hyprlandBackend{}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			b.socketPath = p
			break
		}
	}
	if b.socketPath == "" {
		return nil, errors.New("hyprland IPC socket not found")
	}

	// Verify the socket actually responds.
	x, y, err := b.cursorPos()
	if err != nil {
		return nil, fmt.Errorf("hyprland smoke test: %w", err)
	}
	b.last = Sample{X: x, Y: y}

	return b, nil
}

// cursorPos performs one request/response round trip. Each query uses a fresh
// connection; Hyprland closes the socket after answering.
func (b *hyprlandBackend) cursorPos() (float64, float64, error) {
	conn, err := net.DialTimeout("unix", b.socketPath, hyprlandSocketTimeout)
	if err != nil {
		return 0, 0, fmt.Errorf("dial %s: %w", b.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(hyprlandSocketTimeout)
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte("cursorpos")); err != nil {
		return 0, 0, fmt.Errorf("send cursorpos: %w", err)
	}

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, 0, fmt.Errorf("read cursorpos response: %w", err)
	}

	return parseCursorPos(string(buf[:n]))
}

// parseCursorPos parses Hyprland's "x, y" response.
func parseCursorPos(resp string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(resp), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected cursorpos response: %q", resp)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse x in %q: %w", resp, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse y in %q: %w", resp, err)
	}
	return x, y, nil
}

func (b *hyprlandBackend) Query() (Sample, error) {
	x, y, err := b.cursorPos()
	if err != nil {
		// Transient IPC failure: hold the last known position for this tick.
		return b.last, nil
	}
	b.last = Sample{X: x, Y: y}
	return b.last, nil
}

func (b *hyprlandBackend) NeedsScaling() bool { return false }

func (b *hyprlandBackend) Close() error { return nil }
