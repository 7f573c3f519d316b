package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Tick loop
// ============================================================================
// Single-threaded, cooperative, tick-driven. Each tick does exactly:
//
//	1. one backend query (with DPR division when the backend reports
//	   physical pixels),
//	2. one pet update + advance,
//	3. one frame broadcast.
//
// There is no overlap between ticks and nothing outside this loop mutates the
// pet. External events (seal position from the renderer, petctl commands)
// arrive on the events channel and are applied between ticks.
// ============================================================================

type daemonConfig struct {
	tickInterval time.Duration
	pixelRatio   float64
}

// runDaemon is the main loop. It exits when ctx is canceled or the events
// channel is closed.
func runDaemon(
	ctx context.Context,
	backend Backend,
	pet *Pet,
	events <-chan Event,
	hub *Hub,
	cfg daemonConfig,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(cfg.tickInterval)
	defer ticker.Stop()

	// The pet clock: milliseconds since loop start, monotonic.
	epoch := time.Now()
	nowMS := func(t time.Time) float64 {
		return float64(t.Sub(epoch)) / float64(time.Millisecond)
	}

	// Degraded-query fallback. The backend contract makes errors rare, but a
	// permanently dead backend must not kill the loop; it just freezes input.
	var lastSample Sample

	apply := func(ev Event) {
		if te, ok := ev.(TimedEvent); ok {
			ev = te.Event
		}
		switch e := ev.(type) {
		case SealPosition:
			pet.SetSealPosition(e.X, e.Y)
		case DismissSeal:
			pet.DismissSeal()
		case Ping:
			// Liveness probe only.
		default:
			logger.Warn("daemon ignoring unknown event", "type", slog.AnyValue(ev))
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			apply(TimedEvent{Event: ev, At: time.Now()})

		case now := <-ticker.C:
			sample, err := backend.Query()
			if err != nil {
				logger.Debug("backend query failed, reusing last sample", "error", err)
				sample = lastSample
			}
			lastSample = sample

			if backend.NeedsScaling() {
				sample = sample.Scaled(cfg.pixelRatio)
			}

			t := nowMS(now)
			pet.UpdatePointer(sample.X, sample.Y, sample.Pressed, t)
			frame := pet.Advance(t)

			if hub != nil {
				msg, err := marshalFrame("frame", frame, now)
				if err != nil {
					logger.Error("marshal frame", "error", err)
					continue
				}
				hub.BroadcastBytes(msg)
			}

			if frame.Seal != SealNone {
				logger.Info("seal lifecycle", "event", frame.Seal, "state", pet.State())
			}
		}
	}
}
