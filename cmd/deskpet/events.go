package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Daemon events
// ============================================================================
// Events represent intent from external sources (petctl over IPC, the
// renderer over the state WS). The daemon loop consumes them between ticks;
// nothing mutates the pet from outside the loop.
// ============================================================================

// Event is the marker interface for all daemon events.
type Event interface {
	eventMarker()
}

// SealPosition reports the seal sprite's on-screen center. Sent by the
// renderer once the sprite has been placed, since only the renderer knows
// where it ended up.
type SealPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (SealPosition) eventMarker() {}

// DismissSeal dismisses an active seal without pointer movement.
type DismissSeal struct{}

func (DismissSeal) eventMarker() {}

// Ping is a liveness probe; it reaches the daemon loop and does nothing.
type Ping struct{}

func (Ping) eventMarker() {}

// TimedEvent wraps an external event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// EventEnvelope is the wire format: {"type": "...", "data": {...}}.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent parses a wire envelope into a payload event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "seal_position":
		var e SealPosition
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SealPosition: %w", err)
		}
		return e, nil

	case "dismiss_seal":
		return DismissSeal{}, nil

	case "ping":
		return Ping{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes a payload event into the wire envelope.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case SealPosition:
		env.Type = "seal_position"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SealPosition: %w", err)
		}
		env.Data = data

	case DismissSeal:
		env.Type = "dismiss_seal"

	case Ping:
		env.Type = "ping"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
