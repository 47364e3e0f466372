package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"canvas/internal/models"
)

// Client wraps one websocket connection for outbound frames.
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Frame)
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send writes a frame to the connection. A write failure means the recipient
// vanished between lookup and send; it is skipped, not an error.
func (c *Client) Send(frame models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteJSON(frame)
}
