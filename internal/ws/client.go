package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client is one WebSocket connection of one authenticated user.
type Client struct {
	id      uuid.UUID
	userID  uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	gateway *Gateway
}

func newClient(gateway *Gateway, userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		id:      uuid.New(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		gateway: gateway,
	}
}

// enqueue hands a payload to the write pump without blocking; a client too
// slow to drain its buffer loses frames rather than stalling the hub.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

// readPump processes inbound events sequentially, preserving the event
// order of this connection.
func (c *Client) readPump() {
	defer func() {
		c.gateway.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.logger.Error("WebSocket error",
					zap.String("userId", c.userID.String()),
					zap.Error(err))
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.gateway.logger.Warn("failed to parse event", zap.Error(err))
			continue
		}

		c.gateway.dispatch(c, &ev)
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
