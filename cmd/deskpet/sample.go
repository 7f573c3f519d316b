package main

import "math"

// Sample is one observation of the global pointer: position in screen
// coordinates plus the primary-button state. Whether the coordinates are
// physical or logical pixels is declared by the producing backend via
// NeedsScaling.
type Sample struct {
	X       float64
	Y       float64
	Pressed bool
}

// Scaled returns the sample with coordinates divided by the device pixel
// ratio. A ratio <= 0 is treated as 1.
func (s Sample) Scaled(pixelRatio float64) Sample {
	if pixelRatio <= 0 || pixelRatio == 1 {
		return s
	}
	return Sample{X: s.X / pixelRatio, Y: s.Y / pixelRatio, Pressed: s.Pressed}
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
