package ws

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"signalrelay/internal/metrics"
)

type Options struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	SendQueue       int

	// MessagesPerSecond <= 0 disables the inbound rate guard.
	MessagesPerSecond float64
	MessageBurst      int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 20 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.MessagesPerSecond > 0 && o.MessageBurst <= 0 {
		o.MessageBurst = 1
	}
	return o
}

type WsServer struct {
	hub      *Hub
	router   *Router
	opts     Options
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewWsServer(h *Hub, opts Options) *WsServer {
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		opts:   opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Browser clients are served from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	srv.registerHandlers() // ← all message types configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	conn := newClientConn(s.nextID.Add(1), rawConn, s.opts.SendQueue)
	metrics.OpenConnections.Inc()
	zap.L().Debug("ws.connected",
		zap.Uint64("conn", conn.id),
		zap.String("remote", rawConn.RemoteAddr().String()),
	)

	go conn.writePump(s.opts.WriteWait, s.opts.PingInterval)
	go s.reader(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// reader runs the connection's whole lifetime: messages are handled strictly
// in arrival order, and cleanup runs exactly once when the transport closes.
func (s *WsServer) reader(conn *clientConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.hub.disconnect(conn)
		conn.close()
		metrics.OpenConnections.Dec()
		zap.L().Debug("ws.disconnected", zap.Uint64("conn", conn.id))
	}()

	readTimeout := s.opts.PingInterval + s.opts.PongTimeout
	raw := conn.rawConn
	raw.SetReadLimit(s.opts.MaxMessageBytes)
	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst)
	}

	cc := &ConnContext{ConnID: conn.id, conn: conn}

	for {
		_, frame, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.Uint64("conn", conn.id), zap.Error(err))
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		if limiter != nil && !limiter.Allow() {
			metrics.Drop("rate_limited")
			continue
		}
		s.handleFrame(ctx, cc, frame)
	}
}

func (s *WsServer) handleFrame(ctx context.Context, cc *ConnContext, frame []byte) {
	msg, err := decodeMessage(frame)
	if err != nil {
		metrics.Drop("malformed")
		return
	}
	msgType := msg.Type()
	if msgType == "" {
		metrics.Drop("missing_type")
		return
	}

	err = s.router.dispatch(ctx, cc, msg, frame)
	switch {
	case err == nil:
		metrics.InboundMessages.WithLabelValues(msgType).Inc()
	case errors.Is(err, errUnknownType):
		metrics.Drop("unknown_type")
	case errors.Is(err, ErrNoPeer):
		metrics.Drop("no_peer")
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomExists), errors.Is(err, ErrTargetNotFound):
		// already answered with an error message
		metrics.InboundMessages.WithLabelValues(msgType).Inc()
	default:
		metrics.Drop("malformed")
		zap.L().Debug("ws.dispatch", zap.Uint64("conn", cc.ConnID), zap.String("type", msgType), zap.Error(err))
	}
}
