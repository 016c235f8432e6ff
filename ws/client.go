package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent. Browsers send a
	// heartbeat every 30s; three misses drop the connection.
	pongWait = 90 * time.Second

	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client is one subscriber connection. Frames to it go through send, which
// only WritePump drains.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	id        string
	sessionID int64

	send       chan []byte
	sendMu     sync.Mutex // guards sendClosed and sends on send
	sendClosed bool

	writeMu sync.Mutex // guards conn writes
}

func newClient(hub *Hub, conn *websocket.Conn, id string, sessionID int64) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		id:        id,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

// ReadPump reads client frames until the connection fails, then reports the
// disconnect to the hub. Only heartbeats are expected.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.log.Warn("failed to set read deadline", "client_id", c.id, "error", err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected close", "client_id", c.id, "error", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Debug("invalid frame", "client_id", c.id, "error", err)
			continue
		}

		switch event.Op {
		case OpHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				return
			}
			c.enqueue(Event{Op: OpHeartbeatAck})
		default:
			c.hub.log.Debug("unknown op", "client_id", c.id, "op", event.Op)
		}
	}
}

// WritePump drains send into the connection. A closed send channel ends the
// connection with a close frame.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// enqueue marshals event and queues it without blocking.
func (c *Client) enqueue(event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		c.hub.log.Error("failed to marshal event", "op", event.Op, "error", err)
		return false
	}
	return c.trySend(data)
}

// trySend queues data, reporting false when the buffer is full or the
// client is already closed.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend ends WritePump after the queued frames. Idempotent.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}
