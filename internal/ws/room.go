package ws

import "encoding/json"

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Peer is a connection's identity inside a room.
type Peer struct {
	RoomID string
	PeerID string
	Role   Role
}

type cachedOffer struct {
	sdp  json.RawMessage
	from string
}

// room is guarded by Hub.mu; nothing outside the hub touches it.
type room struct {
	id      string
	members map[*clientConn]*Peer
	offer   *cachedOffer
}

func newRoom(id string) *room {
	return &room{id: id, members: map[*clientConn]*Peer{}}
}

func (r *room) add(c *clientConn, p *Peer) { r.members[c] = p }

func (r *room) remove(c *clientConn) { delete(r.members, c) }

func (r *room) empty() bool { return len(r.members) == 0 }

func (r *room) others(exclude *clientConn) []*clientConn {
	out := make([]*clientConn, 0, len(r.members))
	for c := range r.members {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}

func (r *room) byPeerID(peerID string) *clientConn {
	for c, p := range r.members {
		if p.PeerID == peerID {
			return c
		}
	}
	return nil
}

// broadcast enqueues msg on every member except exclude. A dead receiver
// never stops delivery to the rest.
func (r *room) broadcast(msg []byte, exclude *clientConn) {
	for c := range r.members {
		if c != exclude {
			c.send(msg)
		}
	}
}
