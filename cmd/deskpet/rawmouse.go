package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ============================================================================
// Raw relative-motion source - /dev/input/mice
// ============================================================================
// The kernel's legacy PS/2 aggregate device emits 3-byte packets for every
// pointer movement regardless of display server, which makes it the "always
// live" half of the hybrid backend. It only reports relative deltas in
// uncalibrated device counts; the fusion filter maps those to pixels.
//
// The device is opened non-blocking: the per-tick Drain reads only the
// packets already queued and never stalls the tick loop. Requires read access
// (typically membership in the "input" group).
// ============================================================================

type rawMouse struct {
	fd   int
	path string
}

func openRawMouse(path string) (*rawMouse, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s (add user to the 'input' group?): %w", path, err)
	}
	return &rawMouse{fd: fd, path: path}, nil
}

// decodeMousePacket decodes one PS/2 packet into screen-oriented deltas.
// Byte 0 carries flags: bit 0 left button, bit 4 X sign, bit 5 Y sign.
// Device Y grows upward; the returned dy is negated to screen-down.
func decodeMousePacket(b []byte) (dx, dy int, pressed bool) {
	dx = int(b[1])
	dy = int(b[2])
	if b[0]&0x10 != 0 {
		dx -= 256
	}
	if b[0]&0x20 != 0 {
		dy -= 256
	}
	return dx, -dy, b[0]&0x01 != 0
}

// Drain reads all currently pending packets and returns the accumulated
// deltas plus whether the button was down in any of them. Returns zeros when
// nothing is queued.
func (m *rawMouse) Drain() (dx, dy float64, pressed bool) {
	var buf [3]byte
	for {
		n, err := unix.Read(m.fd, buf[:])
		if err != nil || n < len(buf) {
			// EAGAIN (queue empty) or a short read both end the drain.
			return dx, dy, pressed
		}
		pdx, pdy, pbtn := decodeMousePacket(buf[:])
		dx += float64(pdx)
		dy += float64(pdy)
		pressed = pressed || pbtn
	}
}

func (m *rawMouse) Close() error {
	if m.fd < 0 {
		return nil
	}
	err := unix.Close(m.fd)
	m.fd = -1
	return err
}
