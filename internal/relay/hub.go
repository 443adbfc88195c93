// Package relay implements the shared broadcast relay: a websocket endpoint
// where each connection joins exactly one room and every envelope it sends is
// fanned out to the other members of that room. The relay excludes the
// sender from its own broadcast; clients rely on that and apply everything
// they receive.
package relay

import (
	"log/slog"
	"sync"

	"github.com/liverylab/easel/internal/broadcast"
)

// Hub tracks rooms and their member connections.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
	log   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log,
	}
}

// join adds a connection to a room, removing it from its previous room if it
// had one. A connection is in at most one room at a time.
func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room != "" {
		h.leaveLocked(c)
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.room = room
	h.log.Info("client joined room", "room", room, "socket_id", c.socketID, "members", len(members))
}

// leave removes a connection from its room.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *client) {
	members, ok := h.rooms[c.room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}
	c.room = ""
}

// broadcast fans an envelope out to every member of the sender's room except
// the sender itself. Members with a full send queue are dropped; a client
// that cannot keep up reconnects and reloads.
func (h *Hub) broadcast(from *client, env broadcast.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for member := range h.rooms[from.room] {
		if member == from {
			continue
		}
		select {
		case member.send <- env:
		default:
			h.log.Warn("dropping slow client", "room", from.room, "socket_id", member.socketID)
			member.close()
			h.leaveLocked(member)
		}
	}
}

// shutdown tells every connection in every room that the relay is going
// away. Receivers respond by reloading from persistence rather than trying
// to resync.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	restart := broadcast.Envelope{Event: broadcast.EventServerRestart}
	for room, members := range h.rooms {
		for member := range members {
			select {
			case member.send <- restart:
			default:
			}
		}
		delete(h.rooms, room)
	}
}
