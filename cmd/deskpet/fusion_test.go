package main

import (
	"math"
	"testing"
)

func TestFusionFilter_FirstStepSeedsFromPreciseSource(t *testing.T) {
	f := newFusionFilter(1920, 1080)

	got := f.step(50, 50, false, Sample{X: 400, Y: 300})
	if got.X != 400 || got.Y != 300 {
		t.Fatalf("seed sample = (%v, %v), want (400, 300)", got.X, got.Y)
	}
	// Raw deltas before the seed have nothing to extrapolate from.
	if f.sensitivity != 1.0 {
		t.Fatalf("sensitivity after seed = %v, want 1.0", f.sensitivity)
	}
}

func TestFusionFilter_FreshPreciseReadingWinsExactly(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 100, Y: 100})

	// Precise delta is non-zero, so the fused position is the precise reading
	// regardless of what the raw stream claims.
	got := f.step(999, -999, false, Sample{X: 150, Y: 120})
	if got.X != 150 || got.Y != 120 {
		t.Fatalf("fused = (%v, %v), want precise (150, 120)", got.X, got.Y)
	}
}

func TestFusionFilter_StaleExtrapolatesFromRawDeltas(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 500, Y: 500})

	// Precise source frozen; raw deltas accumulate at sensitivity 1.0.
	got := f.step(10, 5, false, Sample{X: 500, Y: 500})
	if got.X != 510 || got.Y != 505 {
		t.Fatalf("fused = (%v, %v), want (510, 505)", got.X, got.Y)
	}
	got = f.step(-20, 0, false, Sample{X: 500, Y: 500})
	if got.X != 490 || got.Y != 505 {
		t.Fatalf("fused = (%v, %v), want (490, 505)", got.X, got.Y)
	}

	// Zero deltas while stale hold the estimate.
	got = f.step(0, 0, false, Sample{X: 500, Y: 500})
	if got.X != 490 || got.Y != 505 {
		t.Fatalf("fused moved with no input: (%v, %v)", got.X, got.Y)
	}
}

func TestFusionFilter_ExtrapolationClampedToBounds(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 1900, Y: 10})

	got := f.step(500, -500, false, Sample{X: 1900, Y: 10})
	if got.X != 1919 || got.Y != 0 {
		t.Fatalf("fused = (%v, %v), want clamped (1919, 0)", got.X, got.Y)
	}
}

func TestFusionFilter_SensitivityTracksObservedRatio(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 0, Y: 0})

	// Raw claims 10 counts, precise moved 20 px: ratio 2.0.
	// EMA: 0.85*1.0 + 0.15*2.0 = 1.15.
	f.step(10, 0, false, Sample{X: 20, Y: 0})
	if math.Abs(f.sensitivity-1.15) > 1e-9 {
		t.Fatalf("sensitivity = %v, want 1.15", f.sensitivity)
	}

	// Stale extrapolation uses the new estimate.
	got := f.step(10, 0, false, Sample{X: 20, Y: 0})
	if math.Abs(got.X-31.5) > 1e-9 {
		t.Fatalf("fused X = %v, want 31.5", got.X)
	}
}

func TestFusionFilter_NoiseFloorProtectsSensitivity(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 0, Y: 0})

	// Raw magnitude at/below the noise floor never perturbs the estimate,
	// even when the precise source moved a lot.
	f.step(2, 0, false, Sample{X: 200, Y: 0})
	if f.sensitivity != 1.0 {
		t.Fatalf("sensitivity = %v after sub-floor raw, want 1.0", f.sensitivity)
	}
	f.step(0, 0, false, Sample{X: 400, Y: 0})
	if f.sensitivity != 1.0 {
		t.Fatalf("sensitivity = %v after zero raw, want 1.0", f.sensitivity)
	}
}

func TestFusionFilter_ButtonIsOrOfBothSources(t *testing.T) {
	f := newFusionFilter(1920, 1080)
	f.step(0, 0, false, Sample{X: 0, Y: 0})

	cases := []struct {
		raw, prim, want bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, c := range cases {
		got := f.step(0, 0, c.raw, Sample{X: 0, Y: 0, Pressed: c.prim})
		if got.Pressed != c.want {
			t.Fatalf("pressed(raw=%v, prim=%v) = %v, want %v", c.raw, c.prim, got.Pressed, c.want)
		}
	}
}
