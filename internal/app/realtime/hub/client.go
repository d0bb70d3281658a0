// internal/app/realtime/hub/client.go
package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// sendBuffer bounds how far a slow consumer may fall behind before the
	// hub drops the connection rather than block everyone else.
	sendBuffer = 256
)

// Client is one authenticated websocket connection. Reads are handled
// in-order on the read pump; writes flow through a buffered channel drained
// by the write pump. connID distinguishes a user's successive connections in
// the logs, since reconnects displace each other.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	name   string
	connID string
	log    *zap.Logger

	// mu guards closed. Enqueue and closeSend hold it so a displacing
	// connection can never close the channel out from under a sender still
	// running on the read pump or in a notifier.
	mu     sync.Mutex
	closed bool
}

// Enqueue hands a frame to the write pump without blocking. A full buffer
// means the consumer is too slow; the frame is dropped and the caller may
// choose to cut the connection. A closed client drops everything.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend shuts the write pump down exactly once. Safe to call from both
// the displacement path and the read pump's teardown.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed",
					zap.String("user_id", c.userID),
					zap.String("conn_id", c.connID),
					zap.Error(err))
			}
			return
		}
		// Ops run synchronously so a client's requests are handled in the
		// order they were sent.
		c.hub.dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
