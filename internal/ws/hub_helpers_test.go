package ws

import "encoding/json"

type roomSnapshot struct {
	Members   []string
	OfferSDP  json.RawMessage
	OfferFrom string
}

func (h *Hub) snapshot(roomID string) (roomSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return roomSnapshot{}, false
	}
	s := roomSnapshot{}
	for _, p := range r.members {
		s.Members = append(s.Members, p.PeerID)
	}
	if r.offer != nil {
		s.OfferSDP = r.offer.sdp
		s.OfferFrom = r.offer.from
	}
	return s, true
}

func (h *Hub) peerOf(c *clientConn) (Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[c]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

func toPeer(peerID string) idField { return idField{ID: peerID, Set: peerID != ""} }
