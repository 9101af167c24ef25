// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern. The web layer
// pushes status lines and engine state snapshots through it so every
// connected dashboard sees the same stream.
package hub

import (
	"encoding/json"
	"time"
)

// Event kinds pushed over the status stream.
const (
	// KindStatus is a human-readable status line from the engine.
	KindStatus = "status"
	// KindState is a periodic engine state snapshot.
	KindState = "state"
)

// Event is the envelope every broadcast message travels in.
type Event struct {
	Kind string          `json:"kind"`
	At   time.Time       `json:"at"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StatusEvent wraps a human-readable status line.
func StatusEvent(text string) Event {
	return Event{Kind: KindStatus, At: time.Now(), Text: text}
}

// StateEvent wraps an already-encoded state snapshot.
func StateEvent(data []byte) Event {
	return Event{Kind: KindState, At: time.Now(), Data: data}
}
