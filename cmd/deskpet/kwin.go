package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// ============================================================================
// KWin scripting bridge
// ============================================================================
// KWin (the compositor) always knows the true cursor position, even over
// native Wayland surfaces. There is no query API, but KWin scripts can call
// arbitrary D-Bus methods. So this backend:
//
//	1. claims a bus name and exports an Update(x, y) object,
//	2. injects a small KWin script that forwards workspace.cursorPos to that
//	   object on every cursorPosChanged signal,
//	3. reads the latest reported position on each Query.
//
// Coordinates are compositor-scaled (logical). KWin scripting exposes no
// button state; Pressed is always false (known limitation).
// ============================================================================

const (
	kwinBusName   = "org.deskpet.CursorTracker"
	kwinIface     = "org.deskpet.CursorTracker"
	kwinObjPath   = dbus.ObjectPath("/cursor")
	kwinScriptTag = "deskpet-cursor"
)

const kwinCursorJS = `// KWin script: report cursor position to deskpet via D-Bus.
function send() {
    var pos = workspace.cursorPos;
    callDBus(
        "org.deskpet.CursorTracker", "/cursor",
        "org.deskpet.CursorTracker", "Update",
        pos.x, pos.y
    );
}
send();
workspace.cursorPosChanged.connect(send);
`

// kwinCursorReceiver is the exported D-Bus object KWin reports into.
type kwinCursorReceiver struct {
	mu   sync.Mutex
	x, y float64
	seen bool
}

// Update receives cursor coordinates from the injected KWin script.
func (r *kwinCursorReceiver) Update(x, y int32) *dbus.Error {
	r.mu.Lock()
	r.x = float64(x)
	r.y = float64(y)
	r.seen = true
	r.mu.Unlock()
	return nil
}

func (r *kwinCursorReceiver) position() (float64, float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, r.seen
}

type kwinBackend struct {
	conn      *dbus.Conn
	recv      *kwinCursorReceiver
	scriptDir string
	logger    *slog.Logger
	ownsName  bool
}

func newKWinBackend(logger *slog.Logger) (*kwinBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	b := &kwinBackend{conn: conn, recv: &kwinCursorReceiver{}, logger: logger}

	reply, err := conn.RequestName(kwinBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		b.Close()
		return nil, fmt.Errorf("bus name %s already owned", kwinBusName)
	}
	b.ownsName = true

	if err := conn.Export(b.recv, kwinObjPath, kwinIface); err != nil {
		b.Close()
		return nil, fmt.Errorf("export cursor receiver: %w", err)
	}

	b.scriptDir, err = os.MkdirTemp("", "deskpet-kwin-")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	scriptPath := filepath.Join(b.scriptDir, "main.js")
	if err := os.WriteFile(scriptPath, []byte(kwinCursorJS), 0o644); err != nil {
		b.Close()
		return nil, fmt.Errorf("write kwin script: %w", err)
	}

	if err := b.loadScript(scriptPath); err != nil {
		b.Close()
		return nil, err
	}

	// Wait for the first position report; the script sends one immediately
	// after loading.
	deadline := time.Now().Add(kwinCallTimeout)
	for {
		if _, _, seen := b.recv.position(); seen {
			break
		}
		if time.Now().After(deadline) {
			b.Close()
			return nil, fmt.Errorf("kwin script loaded but no cursor data received")
		}
		time.Sleep(25 * time.Millisecond)
	}

	return b, nil
}

func (b *kwinBackend) loadScript(scriptPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), kwinCallTimeout)
	defer cancel()

	scripting := b.conn.Object("org.kde.KWin", "/Scripting")

	// Drop any leftover script from a previous run; failure is fine.
	_ = scripting.CallWithContext(ctx, "org.kde.kwin.Scripting.unloadScript", 0, kwinScriptTag).Err

	var scriptID int32
	call := scripting.CallWithContext(ctx, "org.kde.kwin.Scripting.loadScript", 0, scriptPath, kwinScriptTag)
	if call.Err != nil {
		return fmt.Errorf("load kwin script: %w", call.Err)
	}
	if err := call.Store(&scriptID); err != nil {
		return fmt.Errorf("decode script id: %w", err)
	}

	scriptObj := b.conn.Object("org.kde.KWin", dbus.ObjectPath(fmt.Sprintf("/Scripting/Script%d", scriptID)))
	if err := scriptObj.CallWithContext(ctx, "org.kde.kwin.Script.run", 0).Err; err != nil {
		return fmt.Errorf("run kwin script: %w", err)
	}

	return nil
}

func (b *kwinBackend) Query() (Sample, error) {
	x, y, _ := b.recv.position()
	return Sample{X: x, Y: y}, nil
}

func (b *kwinBackend) NeedsScaling() bool { return false }

// Close unloads the injected script and releases the bus name. Every step is
// best-effort; Close must work after any partial construction.
func (b *kwinBackend) Close() error {
	if b.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), kwinCallTimeout)
		scripting := b.conn.Object("org.kde.KWin", "/Scripting")
		if err := scripting.CallWithContext(ctx, "org.kde.kwin.Scripting.unloadScript", 0, kwinScriptTag).Err; err != nil && b.logger != nil {
			b.logger.Debug("kwin script unload failed", "error", err)
		}
		cancel()

		if b.ownsName {
			_, _ = b.conn.ReleaseName(kwinBusName)
		}
		_ = b.conn.Close()
		b.conn = nil
	}

	if b.scriptDir != "" {
		_ = os.RemoveAll(b.scriptDir)
		b.scriptDir = ""
	}

	return nil
}
