package main

import "time"

// Base behavior tunables. Visual values (speeds, distances, radii) are
// calibrated for a 1280 px-tall screen and scaled at startup via
// Tunables.AdaptToScreen. Durations are wall-clock and never scale.
const (
	defaultTickIntervalMS = 33 // ~30 fps

	defaultMoveSpeed   = 4.0 // px per tick while chasing
	defaultWanderSpeed = 1.5 // px per tick while wandering

	// Hysteresis band: below near the target is "close",
	// above far it is "far". The gap prevents chase/wander flapping.
	defaultNearDistance = 80.0
	defaultFarDistance  = 250.0

	defaultWanderDurationMinMS  = 2000
	defaultWanderDurationMaxMS  = 4000
	defaultWanderRadius         = 80.0
	defaultWanderDirChangeMinMS = 500
	defaultWanderDirChangeMaxMS = 1500

	defaultIdleMinDurationMS = 2000
	defaultIdleMaxDurationMS = 6000

	defaultMouseMoveThreshold = 5.0    // px; displacement below this counts as "not moved"
	defaultMouseIdleT1MS      = 30000  // special idle animation starts ramping
	defaultMouseIdleT2MS      = 120000 // seal appears
	defaultIdleRampDurationMS = 60000  // time for the special animation to reach 100% after T1

	defaultSealWanderRadius = 120.0

	referenceScreenHeight = 1280
)

// Animation identifiers published to the renderer.
const (
	animMove = "move"
	animDrag = "drag"
)

// Pointer backend plumbing.
const (
	defaultMiceDevice = "/dev/input/mice"

	// Short IPC round-trip bounds so a wedged compositor cannot stall the tick loop.
	hyprlandSocketTimeout = 500 * time.Millisecond
	gnomeEvalTimeout      = 500 * time.Millisecond
	kwinCallTimeout       = 3 * time.Second

	// Fusion filter calibration.
	sensitivityKeep = 0.85 // EMA weight of the previous sensitivity estimate
	sensitivityGain = 0.15 // EMA weight of the newly observed ratio
	rawNoiseFloor   = 3.0  // raw counts below this never perturb the estimate
)

const (
	defaultIPCSocketPath = "/tmp/deskpet.sock"
	defaultStateWSPort   = 3071
	defaultPixelRatio    = 1.0
)
