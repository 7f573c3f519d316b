package main

import (
	"math"
	"math/rand"
)

// ============================================================================
// Pet behavior state machine
// ============================================================================
// States:
//
//	CHASING    - pointer is far; pet moves toward it
//	WANDERING  - pointer is near; pet walks randomly around it for a while
//	IDLING     - pet stands still, playing randomized idle animations
//	DRAGGING   - button held; pet freezes on the drag animation
//	SEAL_MODE  - pointer idle for a very long time; a seal appeared and the
//	             pet follows / plays around the seal instead
//
// The machine is advanced once per tick: feed the pointer with UpdatePointer,
// then call Advance and read the returned Frame. All timing comes from the
// caller's monotonic clock and all randomness from the injected source, so a
// fixed seed and a fixed input sequence reproduce the exact output sequence.
// ============================================================================

// PetState enumerates the behavior states. Exactly one is active at a time.
type PetState string

const (
	StateChasing   PetState = "chasing"
	StateWandering PetState = "wandering"
	StateIdling    PetState = "idling"
	StateDragging  PetState = "dragging"
	StateSealMode  PetState = "seal_mode"
)

// SealEvent is the one-shot seal lifecycle signal carried by a Frame. It is
// valid only for the tick that produced it.
type SealEvent string

const (
	SealNone    SealEvent = "none"
	SealSpawn   SealEvent = "spawn"
	SealDespawn SealEvent = "despawn"
)

// Frame is the per-tick output consumed by the renderer.
type Frame struct {
	Animation string    `json:"animation"`
	Flipped   bool      `json:"flipped"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Seal      SealEvent `json:"seal"`
}

// Pet owns all mutable behavior state. It is not safe for concurrent use;
// the tick driver is its sole owner.
type Pet struct {
	x, y float64

	state     PetState
	prevState PetState // one-slot memory for the drag interrupt

	// Pointer tracking
	mouseX, mouseY         float64
	lastMouseX, lastMouseY float64
	mouseIdleStart         float64 // ms
	mouseIdleTime          float64 // ms since last significant move
	mousePressed           bool

	// Wandering
	wanderAnchorX, wanderAnchorY float64
	wanderTargetX, wanderTargetY float64
	wanderEnd                    float64 // ms
	wanderDirChange              float64 // ms

	// Idling
	idleEnd                            float64 // ms
	idleAnchorMouseX, idleAnchorMouseY float64 // pointer position when idling began

	// Seal
	sealActive                           bool
	sealX, sealY                         float64
	sealWanderTargetX, sealWanderTargetY float64
	sealDirChange                        float64 // ms

	// Outputs
	animation   string
	flipped     bool
	pendingSeal SealEvent

	tun Tunables
	rng *rand.Rand
}

// NewPet creates a pet at the given start position. The random source drives
// every nondeterministic choice; seed it explicitly for reproducible runs.
func NewPet(startX, startY float64, tun Tunables, rng *rand.Rand) *Pet {
	return &Pet{
		x: startX, y: startY,
		state:     StateChasing,
		prevState: StateChasing,

		mouseX: startX, mouseY: startY,
		lastMouseX: startX, lastMouseY: startY,

		wanderAnchorX: startX, wanderAnchorY: startY,
		wanderTargetX: startX, wanderTargetY: startY,

		idleAnchorMouseX: startX, idleAnchorMouseY: startY,

		animation:   animMove,
		pendingSeal: SealNone,

		tun: tun,
		rng: rng,
	}
}

// State reports the active behavior state.
func (p *Pet) State() PetState { return p.state }

// Position reports the pet's current position.
func (p *Pet) Position() (x, y float64) { return p.x, p.y }

// UpdatePointer feeds the current pointer sample. Call once per tick, before
// Advance. Significant movement resets the idle tracker and dismisses an
// active seal.
func (p *Pet) UpdatePointer(mx, my float64, pressed bool, nowMS float64) {
	p.mousePressed = pressed

	moved := dist(p.lastMouseX, p.lastMouseY, mx, my) > p.tun.MouseMoveThreshold
	if moved {
		p.mouseIdleStart = nowMS
		p.mouseIdleTime = 0
		if p.sealActive {
			p.sealActive = false
			p.pendingSeal = SealDespawn
		}
	} else {
		p.mouseIdleTime = nowMS - p.mouseIdleStart
	}

	p.lastMouseX, p.lastMouseY = mx, my
	p.mouseX, p.mouseY = mx, my
}

// SetSealPosition records the seal sprite's on-screen center, reported by the
// renderer after it places the sprite.
func (p *Pet) SetSealPosition(sx, sy float64) {
	p.sealX, p.sealY = sx, sy
}

// DismissSeal dismisses an active seal on external request (tray menu, ctl
// command). No-op when no seal is active.
func (p *Pet) DismissSeal() {
	if p.sealActive {
		p.sealActive = false
		p.pendingSeal = SealDespawn
	}
}

// Advance runs one tick of the state machine and returns the frame to render.
func (p *Pet) Advance(nowMS float64) Frame {
	// Consume the one-shot seal signal accumulated since the last tick.
	sealEvent := p.pendingSeal
	p.pendingSeal = SealNone

	// Drag interrupt overrides any state and restores it on release.
	if p.mousePressed && p.state != StateDragging {
		p.prevState = p.state
		p.state = StateDragging
	} else if !p.mousePressed && p.state == StateDragging {
		p.state = p.prevState
	}

	// Choose the chase target: the seal when one is active, else the pointer.
	targetX, targetY := p.mouseX, p.mouseY
	if p.sealActive && p.state != StateDragging {
		targetX, targetY = p.sealX, p.sealY
	}
	d := dist(p.x, p.y, targetX, targetY)

	switch p.state {
	case StateChasing:
		p.handleChasing(targetX-p.x, targetY-p.y, d, nowMS)
	case StateWandering:
		p.handleWandering(d, nowMS)
	case StateIdling:
		sealEvent = p.handleIdling(d, nowMS, sealEvent)
	case StateDragging:
		p.handleDragging()
	case StateSealMode:
		p.handleSealMode(nowMS)
	}

	return Frame{
		Animation: p.animation,
		Flipped:   p.flipped,
		X:         p.x,
		Y:         p.y,
		Seal:      sealEvent,
	}
}

// ----------------------------------------------------------------------------
// State handlers
// ----------------------------------------------------------------------------

func (p *Pet) handleDragging() {
	p.animation = animDrag
	p.flipped = false
}

func (p *Pet) handleChasing(dx, dy, d, nowMS float64) {
	if d < p.tun.NearDistance {
		p.state = StateWandering
		p.initWander(nowMS)
		return
	}

	p.moveToward(dx, dy, d, p.tun.MoveSpeed)
	p.animation = animMove
	p.flipped = dx < 0
}

func (p *Pet) handleWandering(d, nowMS float64) {
	// Target went far and there is no seal holding us here: chase again.
	if d > p.tun.FarDistance && !p.sealActive {
		p.state = StateChasing
		return
	}

	if nowMS > p.wanderEnd {
		p.state = StateIdling
		p.initIdle(nowMS)
		return
	}

	// Keep the anchor pinned to the current target (pointer or seal).
	if p.sealActive {
		p.wanderAnchorX, p.wanderAnchorY = p.sealX, p.sealY
	} else {
		p.wanderAnchorX, p.wanderAnchorY = p.mouseX, p.mouseY
	}

	if nowMS > p.wanderDirChange {
		p.pickWanderTarget(nowMS)
	}

	wx := p.wanderTargetX - p.x
	wy := p.wanderTargetY - p.y
	wd := math.Hypot(wx, wy)

	if wd < p.tun.WanderSpeed {
		// Arrived at the sub-target; pick the next one.
		p.pickWanderTarget(nowMS)
	} else {
		p.moveToward(wx, wy, wd, p.tun.WanderSpeed)
	}

	p.animation = animMove
	p.flipped = wx < 0
}

func (p *Pet) handleIdling(d, nowMS float64, sealEvent SealEvent) SealEvent {
	if d > p.tun.FarDistance && !p.sealActive {
		p.state = StateChasing
		return sealEvent
	}

	// Pointer drifted well away from where idling began: wander back to it.
	if !p.sealActive {
		if dist(p.idleAnchorMouseX, p.idleAnchorMouseY, p.mouseX, p.mouseY) > p.tun.MouseMoveThreshold*10 {
			p.state = StateWandering
			p.initWander(nowMS)
			return sealEvent
		}
	}

	// Pointer idle for a very long time: spawn the seal.
	if !p.sealActive && p.mouseIdleTime > p.tun.MouseIdleT2 {
		p.sealActive = true
		p.state = StateSealMode
		p.sealDirChange = 0 // pick a seal-wander target on the first tick
		return SealSpawn
	}

	if nowMS > p.idleEnd {
		p.animation = p.pickIdleAnimation()
		p.idleEnd = nowMS + p.randRange(p.tun.IdleMinDuration, p.tun.IdleMaxDuration)
	}

	p.flipped = false // idle animations face forward
	return sealEvent
}

func (p *Pet) handleSealMode(nowMS float64) {
	if !p.sealActive {
		// Seal dismissed (pointer moved): back to chasing the cursor.
		p.state = StateChasing
		return
	}

	sdx := p.sealX - p.x
	sdy := p.sealY - p.y
	sd := math.Hypot(sdx, sdy)

	if sd > p.tun.NearDistance {
		// Too far from the seal: chase it.
		p.moveToward(sdx, sdy, sd, p.tun.MoveSpeed)
		p.animation = animMove
		p.flipped = sdx < 0
		return
	}

	// Play around the seal.
	if nowMS > p.sealDirChange {
		angle := p.rng.Float64() * 2 * math.Pi
		r := 20 + p.rng.Float64()*(p.tun.SealWanderRadius-20)
		p.sealWanderTargetX = p.sealX + r*math.Cos(angle)
		p.sealWanderTargetY = p.sealY + r*math.Sin(angle)
		p.sealDirChange = nowMS + p.randRange(p.tun.WanderDirChangeMin, p.tun.WanderDirChangeMax)
	}

	wx := p.sealWanderTargetX - p.x
	wy := p.sealWanderTargetY - p.y
	wd := math.Hypot(wx, wy)

	if wd > p.tun.WanderSpeed {
		p.moveToward(wx, wy, wd, p.tun.WanderSpeed)
	}

	p.animation = animMove
	p.flipped = wx < 0
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// moveToward advances the position by min(d, speed) along the straight line
// to the target; it never overshoots. A zero distance means already arrived.
func (p *Pet) moveToward(dx, dy, d, speed float64) {
	if d <= speed {
		p.x += dx
		p.y += dy
		return
	}
	p.x += dx / d * speed
	p.y += dy / d * speed
}

func (p *Pet) initWander(nowMS float64) {
	p.wanderAnchorX, p.wanderAnchorY = p.mouseX, p.mouseY
	p.wanderEnd = nowMS + p.randRange(p.tun.WanderDurationMin, p.tun.WanderDurationMax)
	p.pickWanderTarget(nowMS)
}

func (p *Pet) pickWanderTarget(nowMS float64) {
	angle := p.rng.Float64() * 2 * math.Pi
	r := 20 + p.rng.Float64()*(p.tun.WanderRadius-20)
	p.wanderTargetX = p.wanderAnchorX + r*math.Cos(angle)
	p.wanderTargetY = p.wanderAnchorY + r*math.Sin(angle)
	p.wanderDirChange = nowMS + p.randRange(p.tun.WanderDirChangeMin, p.tun.WanderDirChangeMax)
}

func (p *Pet) initIdle(nowMS float64) {
	p.idleAnchorMouseX, p.idleAnchorMouseY = p.mouseX, p.mouseY
	p.animation = p.pickIdleAnimation()
	p.idleEnd = nowMS + p.randRange(p.tun.IdleMinDuration, p.tun.IdleMaxDuration)
	p.flipped = false
}

// pickIdleAnimation draws one idle animation. Before MouseIdleT1 all variants
// are equally likely; after it, the special variant's probability ramps
// linearly from 1/n to 1.0 over IdleRampDuration, with the remaining mass
// split evenly among the others. One draw against the cumulative distribution.
func (p *Pet) pickIdleAnimation() string {
	anims := p.tun.IdleAnimations
	n := len(anims)
	if n == 0 {
		return animMove
	}

	if p.mouseIdleTime < p.tun.MouseIdleT1 {
		return anims[p.rng.Intn(n)]
	}

	ramp := math.Min((p.mouseIdleTime-p.tun.MouseIdleT1)/p.tun.IdleRampDuration, 1.0)

	base := 1.0 / float64(n)
	specialProb := base + ramp*(1.0-base)
	otherProb := (1.0 - specialProb) / math.Max(float64(n-1), 1)

	r := p.rng.Float64()
	cumulative := 0.0
	for _, a := range anims {
		if a == p.tun.SpecialIdleAnimation {
			cumulative += specialProb
		} else {
			cumulative += otherProb
		}
		if r < cumulative {
			return a
		}
	}
	return anims[n-1]
}

func (p *Pet) randRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + p.rng.Float64()*(hi-lo)
}
