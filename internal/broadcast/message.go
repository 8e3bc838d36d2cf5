package broadcast

import (
	"encoding/json"
)

// Command event names accepted from clients.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventPing        = "ping"
)

// Event names sent back to clients.
const (
	EventConnected         = "connected"
	EventSubscribed        = "subscribed"
	EventUnsubscribed      = "unsubscribed"
	EventPong              = "pong"
	EventSubscriptionError = "subscription_error"
)

// ClientCommand is one JSON frame received from a client.
type ClientCommand struct {
	Event   string `json:"event"`
	Channel string `json:"channel,omitempty"`
}

// ServerFrame is one JSON frame delivered to a client.
type ServerFrame struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Channel string          `json:"channel,omitempty"`
}

// Envelope is the wire unit carried on the bus under "broadcast:<channel>".
// Socket names a socket id to exclude from delivery, or null.
type Envelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Socket *string         `json:"socket"`
}

func newFrame(event string, data json.RawMessage, channel string) []byte {
	frame, _ := json.Marshal(ServerFrame{Event: event, Data: data, Channel: channel})
	return frame
}
