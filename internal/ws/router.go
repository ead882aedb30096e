package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errUnknownType = errors.New("unknown_type")

// ConnContext is what a handler knows about the connection it serves.
type ConnContext struct {
	ConnID uint64
	conn   *clientConn
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, msg Message, frame []byte) error

// Router keeps a map[type]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds a message type to a handler that receives the frame decoded
// into Req alongside the raw message.
func Register[Req any](
	r *Router,
	msgType string,
	h func(ctx context.Context, c *ConnContext, req Req, msg Message) error,
) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(ctx context.Context, c *ConnContext, msg Message, frame []byte) error {
		var req Req
		if err := json.Unmarshal(frame, &req); err != nil {
			return err
		}
		return h(ctx, c, req, msg)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, msg Message, frame []byte) error {
	r.mu.RLock()
	h, ok := r.handlers[msg.Type()]
	r.mu.RUnlock()
	if !ok {
		return errUnknownType
	}
	return h(ctx, c, msg, frame)
}
