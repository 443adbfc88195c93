package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// retryDelay is the fixed wait between failed connection attempts.
const retryDelay = time.Second

// ErrNotConnected is returned by Publish while no connection is up.
var ErrNotConnected = errors.New("broadcast channel is not connected")

// Channel is a persistent relay connection joined to one room. It reconnects
// forever on connect errors and delivers inbound envelopes on a queue the
// session drains one at a time.
type Channel struct {
	url    string
	room   string
	userID int64
	log    *slog.Logger

	socketID string
	inbound  chan Envelope

	mu   sync.Mutex
	conn *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a channel for the given relay URL and room. The connection is
// not opened until Open is called.
func New(url, room string, userID int64, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		url:      url,
		room:     room,
		userID:   userID,
		log:      log,
		socketID: uuid.NewString(),
		inbound:  make(chan Envelope, 64),
	}
}

// SocketID returns this connection's id, stamped on every outbound envelope.
func (c *Channel) SocketID() string { return c.socketID }

// Inbound returns the queue of envelopes received from peers.
func (c *Channel) Inbound() <-chan Envelope { return c.inbound }

// Open starts the connection manager. It returns once the manager goroutine
// is running; the first connect may still be in progress or retrying.
func (c *Channel) Open(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Close tears the connection down and stops reconnecting.
func (c *Channel) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	if c.done != nil {
		<-c.done
	}
}

// Publish sends one mutation envelope to the room.
func (c *Channel) Publish(event string, data any) error {
	env, err := NewEnvelope(event, data, c.socketID, c.userID)
	if err != nil {
		return err
	}
	return c.write(env)
}

func (c *Channel) write(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(env)
}

// run dials, joins the room, and pumps inbound envelopes until the context
// is canceled. Connect errors retry after a fixed delay indefinitely;
// read errors reconnect immediately.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.inbound)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("relay connect failed", "url", c.url, "err", err)
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := c.join(conn); err != nil {
			c.log.Warn("room join failed", "room", c.room, "err", err)
			conn.Close()
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.log.Info("joined room", "room", c.room, "socket_id", c.socketID)

		c.readPump(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}
}

func (c *Channel) join(conn *websocket.Conn) error {
	env, err := NewEnvelope(EventJoinRoom, c.room, c.socketID, c.userID)
	if err != nil {
		return err
	}
	return conn.WriteJSON(env)
}

// readPump delivers inbound envelopes until the connection drops.
func (c *Channel) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				c.log.Warn("relay connection lost", "err", err)
			}
			return
		}
		select {
		case c.inbound <- env:
		case <-ctx.Done():
			return
		}
	}
}
