package ws

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signalrelay/internal/metrics"
	"signalrelay/internal/roomevents"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrTargetNotFound = errors.New("target peer not found")
	ErrNoPeer         = errors.New("connection has not joined a room")
)

type HubOptions struct {
	// RoomIDDigits is the width of generated room ids. Defaults to 7.
	RoomIDDigits int
	// RejectCollisions makes "create" with an open room's id fail instead of
	// joining that room as host.
	RejectCollisions bool

	Events    roomevents.Sink
	NewPeerID func() string
	NewRoomID func(digits int) string
	Now       func() time.Time
}

// Hub owns the room table and the connection registry. Every mutation and
// the fan-out it causes happen under one lock, and sends only enqueue, so
// holding the lock never waits on a peer.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	peers map[*clientConn]*Peer

	opts HubOptions
}

// Stats is a point-in-time count of open rooms and joined peers.
type Stats struct {
	Rooms int `json:"rooms"`
	Peers int `json:"peers"`
}

func NewHub(opts HubOptions) *Hub {
	if opts.RoomIDDigits <= 0 {
		opts.RoomIDDigits = 7
	}
	if opts.Events == nil {
		opts.Events = roomevents.Nop{}
	}
	if opts.NewPeerID == nil {
		opts.NewPeerID = uuid.NewString
	}
	if opts.NewRoomID == nil {
		opts.NewRoomID = randomRoomID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Hub{
		rooms: make(map[string]*room),
		peers: make(map[*clientConn]*Peer),
		opts:  opts,
	}
}

// randomRoomID returns a left-zero-padded decimal string of the given width.
func randomRoomID(digits int) string {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		zap.L().Panic("room id entropy", zap.Error(err))
	}
	return fmt.Sprintf("%0*d", digits, n.Int64())
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Rooms: len(h.rooms), Peers: len(h.peers)}
}

// create makes c the host of requestedID, or of a fresh room when
// requestedID is empty.
func (h *Hub) create(c *clientConn, requestedID string) (*Peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if requestedID != "" && h.opts.RejectCollisions {
		if _, taken := h.rooms[requestedID]; taken {
			h.replyErrorLocked(c, msgRoomExists)
			return nil, ErrRoomExists
		}
	}

	var keep *room
	if requestedID != "" {
		keep = h.rooms[requestedID]
	}
	h.leaveLocked(c, keep)

	roomID := requestedID
	if roomID == "" {
		roomID = h.allocateRoomIDLocked()
	}
	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		h.rooms[roomID] = r
		metrics.OpenRooms.Inc()
		h.emitLocked(roomevents.RoomCreated, roomID, nil)
		zap.L().Info("hub.room_created", zap.String("room_id", roomID))
	} else {
		zap.L().Info("hub.room_reused", zap.String("room_id", roomID))
	}

	p := h.registerLocked(c, r, RoleHost)
	c.send(encode(roomReply{Type: TypeCreated, RoomID: roomID, PeerID: p.PeerID}))
	return p, nil
}

// join adds c to an existing room as guest, replays the cached host offer to
// it and announces it to everyone else.
func (h *Hub) join(c *clientConn, roomID string) (*Peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if roomID == "" || !ok {
		h.replyErrorLocked(c, msgRoomNotFound)
		return nil, ErrRoomNotFound
	}
	h.leaveLocked(c, r)

	p := h.registerLocked(c, r, RoleGuest)
	c.send(encode(roomReply{Type: TypeJoined, RoomID: roomID, PeerID: p.PeerID}))
	if r.offer != nil {
		c.send(encode(offerReply{Type: TypeOffer, SDP: r.offer.sdp, From: r.offer.from}))
	}
	r.broadcast(encode(peerReply{Type: TypePeerJoined, PeerID: p.PeerID}), c)
	return p, nil
}

// leave drops c's peer record. It reports whether there was one.
func (h *Hub) leave(c *clientConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(c, nil) != nil
}

// disconnect is the transport-close cleanup; identical to leave.
func (h *Hub) disconnect(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, nil)
}

// relay applies the offer cache rule and routes a signaling message from c.
// A set "to" is delivered to that peer only or answered with an error.
func (h *Hub) relay(c *clientConn, msgType string, msg Message, to idField) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.peers[c]
	if !ok {
		return ErrNoPeer
	}
	r, ok := h.rooms[p.RoomID]
	if !ok {
		return ErrNoPeer
	}

	if msgType == TypeOffer && p.Role == RoleHost && msg.Has("sdp") {
		r.offer = &cachedOffer{sdp: msg["sdp"], from: p.PeerID}
	}

	data, err := json.Marshal(msg.withFrom(p.PeerID))
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}

	if to.Set {
		target := r.byPeerID(to.ID)
		if to.ID == "" || target == nil {
			h.replyErrorLocked(c, msgTargetNotFound)
			return ErrTargetNotFound
		}
		target.send(data)
		return nil
	}

	others := r.others(c)
	if len(others) == 1 {
		others[0].send(data)
		return nil
	}
	r.broadcast(data, c)
	return nil
}

// ─────────────────────────────── locked helpers ──────────────────────────────

func (h *Hub) allocateRoomIDLocked() string {
	for {
		id := h.opts.NewRoomID(h.opts.RoomIDDigits)
		if _, taken := h.rooms[id]; !taken {
			return id
		}
	}
}

func (h *Hub) registerLocked(c *clientConn, r *room, role Role) *Peer {
	p := &Peer{RoomID: r.id, PeerID: h.opts.NewPeerID(), Role: role}
	r.add(c, p)
	h.peers[c] = p
	metrics.JoinedPeers.Inc()
	h.emitLocked(roomevents.PeerJoined, r.id, p)
	zap.L().Info("hub.peer_joined",
		zap.String("room_id", r.id),
		zap.String("peer_id", p.PeerID),
		zap.String("role", string(role)),
	)
	return p
}

// leaveLocked removes c's peer record, tells the remaining members, and
// destroys the room with its cached offer once empty, unless it is keep.
func (h *Hub) leaveLocked(c *clientConn, keep *room) *Peer {
	p, ok := h.peers[c]
	if !ok {
		return nil
	}
	delete(h.peers, c)
	metrics.JoinedPeers.Dec()
	h.emitLocked(roomevents.PeerLeft, p.RoomID, p)
	zap.L().Info("hub.peer_left", zap.String("room_id", p.RoomID), zap.String("peer_id", p.PeerID))

	r, ok := h.rooms[p.RoomID]
	if !ok {
		return p
	}
	r.remove(c)
	r.broadcast(encode(peerReply{Type: TypePeerLeft, PeerID: p.PeerID}), c)

	if r.empty() && r != keep {
		delete(h.rooms, r.id)
		metrics.OpenRooms.Dec()
		h.emitLocked(roomevents.RoomDestroyed, r.id, nil)
		zap.L().Info("hub.room_destroyed", zap.String("room_id", r.id))
	}
	return p
}

func (h *Hub) replyErrorLocked(c *clientConn, text string) {
	metrics.ErrorReplies.WithLabelValues(text).Inc()
	c.send(encode(errorReply{Type: TypeError, Message: text}))
}

func (h *Hub) emitLocked(kind roomevents.Kind, roomID string, p *Peer) {
	ev := roomevents.Event{Kind: kind, RoomID: roomID, At: h.opts.Now().UTC()}
	if p != nil {
		ev.PeerID = p.PeerID
		ev.Role = string(p.Role)
	}
	h.opts.Events.Emit(ev)
}
