package main

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// x11Backend queries the cursor via XQueryPointer.
//
// Reliable on native X11 sessions. Under XWayland the reported position is
// only correct while the pointer is over an XWayland surface; on Wayland the
// hybrid backend wraps this one and compensates for the stale readings.
// Coordinates are X11 physical pixels, so NeedsScaling is true.
type x11Backend struct {
	conn *xgb.Conn
	root xproto.Window

	screenW float64
	screenH float64

	last Sample
}

func newX11Backend() (*x11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X display: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	b := &x11Backend{
		conn:    conn,
		root:    screen.Root,
		screenW: float64(screen.WidthInPixels),
		screenH: float64(screen.HeightInPixels),
	}

	// Smoke test and seed the last-known sample.
	s, err := b.queryPointer()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11 smoke test: %w", err)
	}
	b.last = s

	return b, nil
}

func (b *x11Backend) queryPointer() (Sample, error) {
	reply, err := xproto.QueryPointer(b.conn, b.root).Reply()
	if err != nil {
		return Sample{}, fmt.Errorf("query pointer: %w", err)
	}
	return Sample{
		X:       float64(reply.RootX),
		Y:       float64(reply.RootY),
		Pressed: reply.Mask&xproto.ButtonMask1 != 0,
	}, nil
}

func (b *x11Backend) Query() (Sample, error) {
	s, err := b.queryPointer()
	if err != nil {
		return b.last, nil
	}
	b.last = s
	return s, nil
}

func (b *x11Backend) NeedsScaling() bool { return true }

func (b *x11Backend) Close() error {
	b.conn.Close()
	return nil
}

// bounds reports the X11 screen dimensions in physical pixels.
func (b *x11Backend) bounds() (w, h float64) {
	return b.screenW, b.screenH
}
