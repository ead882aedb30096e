package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signalrelay/internal/metrics"
)

// clientConn is one websocket connection. Outbound frames go through a
// bounded queue drained by writePump, so send never blocks the caller.
type clientConn struct {
	id      uint64
	rawConn *websocket.Conn

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

func newClientConn(id uint64, rawConn *websocket.Conn, queue int) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: rawConn,
		out:     make(chan []byte, queue),
	}
}

// send enqueues data or drops it when the connection is closed or its queue
// is full.
func (c *clientConn) send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.DroppedOutbound.Inc()
		return false
	}
	select {
	case c.out <- data:
		return true
	default:
		metrics.DroppedOutbound.Inc()
		zap.L().Debug("ws.send_queue_full", zap.Uint64("conn", c.id))
		return false
	}
}

// close stops the write pump once the queue is drained. Safe to call twice.
func (c *clientConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// writePump is the only writer on rawConn.
func (c *clientConn) writePump(writeWait, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.rawConn.Close()
	}()

	for {
		select {
		case data, ok := <-c.out:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.rawConn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.rawConn.WriteMessage(websocket.TextMessage, data); err != nil {
				zap.L().Debug("ws.write", zap.Uint64("conn", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
