package broadcast

import (
	"errors"
	"sync/atomic"
	"time"

	"log/slog"

	"broadcast-service/internal/models"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Per-socket outbound buffer
	sendBufferSize = 256
)

var ErrClientDisconnected = errors.New("client disconnected")

// Conn is the subset of *websocket.Conn the broadcasting core touches.
// Tests substitute a recording mock.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live socket. The handler creates it on successful
// authentication; the Registry owns it afterwards.
type Client struct {
	id   string
	user *models.User
	conn Conn

	send   chan []byte
	done   chan struct{}
	closed int32

	// channel membership; mutated only by the Registry under its lock
	channels map[string]struct{}
}

func NewClient(id string, user *models.User, conn Conn) *Client {
	return &Client{
		id:       id,
		user:     user,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) User() *models.User {
	return c.user
}

func (c *Client) UserID() (uint, bool) {
	if c.user == nil {
		return 0, false
	}
	return c.user.ID, true
}

// Send queues a frame for the write pump. A full buffer counts as a failed
// delivery so one stalled reader cannot hold up a broadcast.
func (c *Client) Send(frame []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientDisconnected
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientDisconnected
	default:
		return ErrClientDisconnected
	}
}

// Close tears the socket down. Safe to call from multiple paths; only the
// first call has an effect.
func (c *Client) Close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "socketID", c.id, "error", err)
		}
	}
}

// CloseWithCode sends a close frame before tearing the socket down. Close
// frames are control messages, so writing one here cannot race the pump.
func (c *Client) CloseWithCode(code int, reason string) {
	if atomic.LoadInt32(&c.closed) == 0 {
		deadline := time.Now().Add(writeWait)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	}
	c.Close()
}

// WritePump drains the send queue onto the socket. It is the only goroutine
// writing data frames, which keeps per-socket delivery ordered.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("Error writing message", "socketID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "socketID", c.id, "error", err)
				return
			}

		case <-c.done:
			return
		}
	}
}
