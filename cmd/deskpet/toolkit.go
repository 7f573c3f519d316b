package main

import (
	"log/slog"
	"sync/atomic"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
)

// toolkitBackend is the unconditional terminus of the fallback chain.
//
// Position comes from robotgo's cursor polling, which works on X11, Windows
// and macOS (and returns the frozen XWayland value on Wayland, which is why
// every compositor-native backend outranks this one). Button state comes from
// a global gohook listener, since robotgo has no query for it.
//
// Construction cannot fail: the hook listener is started best-effort and a
// dead listener only costs the Pressed flag.
type toolkitBackend struct {
	pressed atomic.Bool
	hooked  bool
	logger  *slog.Logger
}

func newToolkitBackend(logger *slog.Logger) *toolkitBackend {
	b := &toolkitBackend{logger: logger}

	hook.Register(hook.MouseDown, []string{}, func(e hook.Event) {
		if e.Button == hook.MouseMap["left"] {
			b.pressed.Store(true)
		}
	})
	hook.Register(hook.MouseUp, []string{}, func(e hook.Event) {
		if e.Button == hook.MouseMap["left"] {
			b.pressed.Store(false)
		}
	})

	b.hooked = true
	go func() {
		s := hook.Start()
		<-hook.Process(s)
	}()

	return b
}

func (b *toolkitBackend) Query() (Sample, error) {
	x, y := robotgo.Location()
	return Sample{
		X:       float64(x),
		Y:       float64(y),
		Pressed: b.pressed.Load(),
	}, nil
}

func (b *toolkitBackend) NeedsScaling() bool { return false }

func (b *toolkitBackend) Close() error {
	if b.hooked {
		hook.End()
		b.hooked = false
	}
	return nil
}
