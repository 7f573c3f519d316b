package main

import (
	"fmt"
	"math"
)

// ============================================================================
// Fusion filter - stale-value compensation
// ============================================================================
// Under XWayland, XQueryPointer returns correct coordinates only while the
// pointer is over an XWayland surface; elsewhere it freezes at the last good
// value. The raw mice stream is always live but reports relative deltas in
// uncalibrated device counts.
//
// Per query:
//   - a non-zero precise delta means the precise source is fresh: adopt its
//     position and re-estimate sensitivity from the observed ratio, so the
//     filter adapts to any pointer-acceleration curve without configuration;
//   - a zero precise delta means it is stale: extrapolate from the raw deltas
//     scaled by the current sensitivity, clamped to the display bounds.
//
// The position self-corrects whenever the precise source sees the pointer
// again. Button state is the OR of both sources; either may miss transient
// presses.
// ============================================================================

// fusionFilter is the pure state of the compensation algorithm, separated
// from device plumbing so it can be driven by scripted readings.
type fusionFilter struct {
	primLastX float64
	primLastY float64

	fusedX float64
	fusedY float64

	// sensitivity maps raw device counts to precise-source pixels. It is
	// re-estimated continuously and never reset for the filter's lifetime.
	sensitivity float64

	boundsW float64
	boundsH float64

	seeded bool
}

func newFusionFilter(boundsW, boundsH float64) *fusionFilter {
	return &fusionFilter{
		sensitivity: 1.0,
		boundsW:     boundsW,
		boundsH:     boundsH,
	}
}

// step advances the filter with one tick's worth of accumulated raw deltas
// and one precise reading, returning the fused sample.
func (f *fusionFilter) step(rawDX, rawDY float64, rawPressed bool, prim Sample) Sample {
	if !f.seeded {
		// Nothing can be extrapolated before an initial precise read.
		f.primLastX, f.primLastY = prim.X, prim.Y
		f.fusedX, f.fusedY = prim.X, prim.Y
		f.seeded = true
		return Sample{X: f.fusedX, Y: f.fusedY, Pressed: prim.Pressed || rawPressed}
	}

	primDX := prim.X - f.primLastX
	primDY := prim.Y - f.primLastY

	if primDX != 0 || primDY != 0 {
		// Precise source is fresh this tick.
		f.fusedX, f.fusedY = prim.X, prim.Y
		f.primLastX, f.primLastY = prim.X, prim.Y

		// Re-estimate sensitivity from the raw/actual magnitude ratio. A raw
		// magnitude at or below the noise floor must never perturb the
		// estimate (and guards the division).
		rawMag := math.Hypot(rawDX, rawDY)
		if rawMag > rawNoiseFloor {
			ratio := math.Hypot(primDX, primDY) / rawMag
			f.sensitivity = sensitivityKeep*f.sensitivity + sensitivityGain*ratio
		}
	} else if rawDX != 0 || rawDY != 0 {
		// Precise source is stale: extrapolate over the invisible region.
		f.fusedX = clamp(f.fusedX+rawDX*f.sensitivity, 0, f.boundsW-1)
		f.fusedY = clamp(f.fusedY+rawDY*f.sensitivity, 0, f.boundsH-1)
	}

	return Sample{X: f.fusedX, Y: f.fusedY, Pressed: prim.Pressed || rawPressed}
}

// ============================================================================
// Hybrid backend - X11 precise source + raw mice deltas
// ============================================================================

// hybridBackend works on any Wayland compositor, provided the mice device is
// readable. Coordinates are X11 physical pixels.
type hybridBackend struct {
	x11    *x11Backend
	mice   *rawMouse
	filter *fusionFilter

	last Sample
}

func newHybridBackend(miceDevice string) (*hybridBackend, error) {
	mice, err := openRawMouse(miceDevice)
	if err != nil {
		return nil, err
	}

	x11, err := newX11Backend()
	if err != nil {
		_ = mice.Close()
		return nil, fmt.Errorf("hybrid precise source: %w", err)
	}

	w, h := x11.bounds()
	b := &hybridBackend{
		x11:    x11,
		mice:   mice,
		filter: newFusionFilter(w, h),
	}

	// Seed the filter from an initial precise read.
	prim, _ := x11.Query()
	b.last = b.filter.step(0, 0, false, prim)

	return b, nil
}

func (b *hybridBackend) Query() (Sample, error) {
	rawDX, rawDY, rawPressed := b.mice.Drain()

	prim, err := b.x11.Query()
	if err != nil {
		// Precise source gone for this tick; hold the fused estimate.
		return b.last, nil
	}

	b.last = b.filter.step(rawDX, rawDY, rawPressed, prim)
	return b.last, nil
}

func (b *hybridBackend) NeedsScaling() bool { return true }

func (b *hybridBackend) Close() error {
	err := b.x11.Close()
	if cerr := b.mice.Close(); err == nil {
		err = cerr
	}
	return err
}
