package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 16 * 1024

	sendBuffer = 256
)

// Client is one live channel for one user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered outbound frames. Never closed; done signals shutdown so
	// a concurrent trySend can never hit a closed channel.
	send chan []byte
	done chan struct{}
	once sync.Once

	UserID string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		UserID: userID,
	}
}

// trySend queues a frame without blocking. A full buffer or a shut-down
// client counts as a delivery failure.
func (c *Client) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// ReadPump pumps frames from the connection into the hub. Runs in its
// own goroutine per client; any read error counts as a disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error from %s: %v", c.UserID, err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("[ws] bad frame from %s: %v", c.UserID, err)
			continue
		}
		switch frame.Type {
		case frameTyping:
			c.hub.Typing(c.UserID, frame.ConversationID, frame.IsTyping)
		case frameSubscribe:
			c.hub.Subscribe(c.UserID, frame.ConversationID)
		case frameUnsubscribe:
			c.hub.Unsubscribe(c.UserID, frame.ConversationID)
		default:
			log.Printf("[ws] unknown frame type %q from %s", frame.Type, c.UserID)
		}
	}
}

// WritePump pumps queued frames to the connection and keeps the
// connection alive with pings. Runs in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

			// Flush queued frames as separate text frames.
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
