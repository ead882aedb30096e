package ws

import (
	"encoding/json"
	"errors"
)

// Message types understood by the relay.
const (
	TypeCreate     = "create"
	TypeCreated    = "created"
	TypeJoin       = "join"
	TypeJoined     = "joined"
	TypeLeave      = "leave"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeOffer      = "offer"
	TypeAnswer     = "answer"
	TypeIce        = "ice"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeError      = "error"
)

// Error texts sent to clients.
const (
	msgRoomNotFound   = "Room not found"
	msgRoomExists     = "Room already exists"
	msgTargetNotFound = "target peer not found"
)

var errNotObject = errors.New("message is not a json object")

// Message is one inbound frame. Values stay raw so fields the relay does not
// interpret are forwarded unchanged.
type Message map[string]json.RawMessage

func decodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotObject
	}
	return m, nil
}

// Type returns the "type" field, or "" when it is absent or not a string.
func (m Message) Type() string {
	raw, ok := m["type"]
	if !ok {
		return ""
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t
}

func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// withFrom returns a copy stamped with the sender's peer id. Any client
// supplied "from" is overwritten.
func (m Message) withFrom(peerID string) Message {
	out := make(Message, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	from, _ := json.Marshal(peerID)
	out["from"] = from
	return out
}

// ──────────────────────────── Request bodies ─────────────────────────────────

// CreateRequest is the body for "create". RoomID is optional.
type CreateRequest struct {
	RoomID string `json:"roomId"`
}

// idField is a "roomId" or "to" value. Set is false when the field is absent,
// null or "". A value that is not a string is Set with an empty ID, which
// names no room or peer.
type idField struct {
	ID  string
	Set bool
}

func (f *idField) UnmarshalJSON(data []byte) error {
	*f = idField{}
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &f.ID); err != nil {
		f.ID, f.Set = "", true
		return nil
	}
	f.Set = f.ID != ""
	return nil
}

// JoinRequest is the body for "join".
type JoinRequest struct {
	RoomID idField `json:"roomId"`
}

// SignalRequest is the routed part of "offer", "answer" and "ice".
type SignalRequest struct {
	To idField `json:"to"`
}

type Empty struct{}

// ──────────────────────────── Server replies ─────────────────────────────────

type roomReply struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
}

type peerReply struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

type offerReply struct {
	Type string          `json:"type"`
	SDP  json.RawMessage `json:"sdp"`
	From string          `json:"from"`
}

type errorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type typeOnly struct {
	Type string `json:"type"`
}

// encode is for server-built replies, which hold only strings and raw values
// that already passed decodeMessage.
func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("ws: encode reply: " + err.Error())
	}
	return data
}
