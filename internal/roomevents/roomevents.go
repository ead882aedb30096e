// Package roomevents describes room lifecycle notifications emitted by the
// signaling hub. Consumers only observe history; nothing flows back into the hub.
package roomevents

import "time"

type Kind string

const (
	RoomCreated   Kind = "room_created"
	RoomDestroyed Kind = "room_destroyed"
	PeerJoined    Kind = "peer_joined"
	PeerLeft      Kind = "peer_left"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	RoomID string    `json:"room_id"`
	PeerID string    `json:"peer_id,omitempty"`
	Role   string    `json:"role,omitempty"`
	At     time.Time `json:"at"`
}

// Sink receives events. Emit is called while the hub holds its lock, so it
// must not block: implementations enqueue or drop.
type Sink interface {
	Emit(ev Event)
}

type Nop struct{}

func (Nop) Emit(Event) {}
