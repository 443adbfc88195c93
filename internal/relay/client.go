package relay

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/liverylab/easel/internal/broadcast"
)

// client is one relay-side websocket connection.
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan broadcast.Envelope
	socketID string
	room     string

	closeOnce sync.Once
	closed    chan struct{}
	log       *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, log *slog.Logger) *client {
	return &client{
		hub:    hub,
		conn:   conn,
		send:   make(chan broadcast.Envelope, 64),
		closed: make(chan struct{}),
		log:    log,
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// readPump consumes envelopes from the connection. The first join envelope
// places the connection in its room; every other envelope is relayed to the
// rest of the room.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.close()
	}()
	joined := false
	for {
		var env broadcast.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("client read failed", "socket_id", c.socketID, "err", err)
			}
			return
		}
		if c.socketID == "" {
			c.socketID = env.SocketID
		}
		if env.Event == broadcast.EventJoinRoom {
			var room string
			if err := decodeData(env.Data, &room); err != nil || room == "" {
				c.log.Warn("bad join envelope", "socket_id", c.socketID, "err", err)
				return
			}
			c.hub.join(c, room)
			joined = true
			continue
		}
		if !joined {
			// Envelopes before a join have nowhere to go.
			continue
		}
		c.hub.broadcast(c, env)
	}
}

// writePump drains the send queue onto the connection.
func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
