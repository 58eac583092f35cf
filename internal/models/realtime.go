package models

import "encoding/json"

// Event kinds pushed by the socket server.
const (
	EventNewMessage           = "newMessage"
	EventNewOrder             = "newOrder"
	EventOrderStatusUpdated   = "orderStatusUpdated"
	EventConversationsUpdated = "conversationsUpdated"
)

// Event is one inbound frame: an event name and its raw payload.
type Event struct {
	Kind string          `json:"event"`
	Data json.RawMessage `json:"data"`

	// IdentityID is the user whose connection received the frame. Not on the wire.
	IdentityID string `json:"-"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
