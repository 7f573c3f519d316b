package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"testing"
	"time"
)

// scriptedBackend replays a fixed sample sequence, holding the last one.
type scriptedBackend struct {
	samples []Sample
	i       int
	scaling bool
}

func (b *scriptedBackend) Query() (Sample, error) {
	s := b.samples[b.i]
	if b.i < len(b.samples)-1 {
		b.i++
	}
	return s, nil
}

func (b *scriptedBackend) NeedsScaling() bool { return b.scaling }
func (b *scriptedBackend) Close() error       { return nil }

func TestRunDaemon_BroadcastsOneFramePerTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()
	hub := newTestHub(t, 8, 64)
	go hub.Run(ctx)

	backend := &scriptedBackend{samples: []Sample{{X: 500, Y: 500}}}
	pet := NewPet(100, 100, testTunables(), rand.New(rand.NewSource(1)))
	events := make(chan Event, 8)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(ctx, backend, pet, events, hub, daemonConfig{
			tickInterval: 2 * time.Millisecond,
			pixelRatio:   1.0,
		}, logger)
	}()

	// A frame shows up and carries the pet moving toward the pointer.
	waitUntil(t, time.Second, func() bool {
		return hub.LastFrame() != nil
	}, "no frame broadcast")

	waitUntil(t, time.Second, func() bool {
		var env struct {
			Type string `json:"type"`
			Data Frame  `json:"data"`
		}
		if err := json.Unmarshal(hub.LastFrame(), &env); err != nil {
			return false
		}
		return env.Type == "frame" && env.Data.X > 100 && env.Data.Animation == animMove
	}, "frames do not show the pet chasing")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for daemon to stop")
	}
}

func TestRunDaemon_AppliesExternalEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()
	backend := &scriptedBackend{samples: []Sample{{X: 100, Y: 100}}}
	pet := NewPet(100, 100, testTunables(), rand.New(rand.NewSource(1)))
	events := make(chan Event, 8)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nil hub: event handling does not depend on the broadcast path.
		runDaemon(ctx, backend, pet, events, nil, daemonConfig{
			tickInterval: 2 * time.Millisecond,
			pixelRatio:   1.0,
		}, logger)
	}()

	events <- SealPosition{X: 640, Y: 360}
	events <- Ping{}

	// Give the loop a few ticks to drain the events, then stop it. The pet is
	// only inspected after the daemon goroutine has exited.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for daemon to stop")
	}

	if pet.sealX != 640 || pet.sealY != 360 {
		t.Fatalf("seal position = (%v, %v), want (640, 360)", pet.sealX, pet.sealY)
	}
}

func TestRunDaemon_StopsWhenEventsChannelCloses(t *testing.T) {
	logger := slog.Default()
	backend := &scriptedBackend{samples: []Sample{{X: 0, Y: 0}}}
	pet := NewPet(0, 0, testTunables(), rand.New(rand.NewSource(1)))
	events := make(chan Event)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), backend, pet, events, nil, daemonConfig{
			tickInterval: 2 * time.Millisecond,
			pixelRatio:   1.0,
		}, logger)
	}()

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop on closed events channel")
	}
}
