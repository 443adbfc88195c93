// Package broadcast implements the client side of the relay connection: a
// persistent, reconnecting websocket scoped to one room, carrying JSON
// envelopes for every mutation kind. Outbound envelopes are stamped with the
// sender's connection id and user id; the relay excludes the sender from its
// own room broadcast, so the client applies every inbound envelope
// unconditionally.
package broadcast

import "encoding/json"

// Envelope events. The client-* events mirror the mutation kinds the
// dispatcher publishes; the rest are channel lifecycle.
const (
	EventJoinRoom = "room"

	EventCreateLayer     = "client-create-layer"
	EventCreateLayerList = "client-create-layer-list"
	EventUpdateLayer     = "client-update-layer"
	EventBulkUpdateLayer = "client-bulk-update-layer"
	EventDeleteLayer     = "client-delete-layer"
	EventDeleteLayerList = "client-delete-layer-list"
	EventUpdateScheme    = "client-update-scheme"
	EventDeleteScheme    = "client-delete-scheme"
	EventRenewLayers     = "client-renew-carmake-layers"

	// EventServerRestart is sent by the relay when it is going away. The
	// sync model cannot reconcile an unbounded gap, so receivers discard
	// local state and reload from persistence.
	EventServerRestart = "server-restart"
)

// GeneralRoom is the shared room for list-level notifications outside an
// open project. Project rooms are keyed by scheme id.
const GeneralRoom = "general"

// Envelope is one message on the relay connection.
type Envelope struct {
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
	SocketID string          `json:"socketID,omitempty"`
	UserID   int64           `json:"userID,omitempty"`
}

// NewEnvelope builds an envelope with the payload marshaled in place.
func NewEnvelope(event string, data any, socketID string, userID int64) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw, SocketID: socketID, UserID: userID}, nil
}
