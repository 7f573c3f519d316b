package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// gnomeBackend queries the cursor via GNOME Shell's Eval D-Bus method.
//
// global.get_pointer() returns [x, y, modifierMask]; Button1 is bit 0x100 of
// the mask, so unlike the other compositor bridges this one does report the
// primary button. Coordinates are logical.
type gnomeBackend struct {
	conn *dbus.Conn
	last Sample
}

const gnomeButton1Mask = 0x100

func newGnomeBackend() (*gnomeBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	b := &gnomeBackend{conn: conn}

	// Smoke test: Eval must be reachable and enabled (GNOME can ship with
	// unsafe-mode Eval disabled, in which case we fall through the chain).
	s, err := b.eval()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("gnome shell smoke test: %w", err)
	}
	b.last = s

	return b, nil
}

func (b *gnomeBackend) eval() (Sample, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gnomeEvalTimeout)
	defer cancel()

	obj := b.conn.Object("org.gnome.Shell", "/org/gnome/Shell")
	call := obj.CallWithContext(ctx, "org.gnome.Shell.Eval", 0, "global.get_pointer()")
	if call.Err != nil {
		return Sample{}, fmt.Errorf("shell eval: %w", call.Err)
	}

	var ok bool
	var out string
	if err := call.Store(&ok, &out); err != nil {
		return Sample{}, fmt.Errorf("decode eval reply: %w", err)
	}
	if !ok {
		return Sample{}, fmt.Errorf("shell eval rejected: %s", out)
	}

	// out is the JSON rendering of [x, y, modifierMask].
	var v [3]float64
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return Sample{}, fmt.Errorf("parse pointer tuple %q: %w", out, err)
	}

	return Sample{
		X:       v[0],
		Y:       v[1],
		Pressed: int(v[2])&gnomeButton1Mask != 0,
	}, nil
}

func (b *gnomeBackend) Query() (Sample, error) {
	s, err := b.eval()
	if err != nil {
		// One failed round trip degrades to the last known sample.
		return b.last, nil
	}
	b.last = s
	return s, nil
}

func (b *gnomeBackend) NeedsScaling() bool { return false }

func (b *gnomeBackend) Close() error {
	return b.conn.Close()
}
