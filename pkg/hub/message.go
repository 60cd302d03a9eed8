// Package hub fans messages out to websocket clients using the channel-based
// register/unregister/broadcast loop.
package hub

import "encoding/json"

// Message is one frame to deliver to every client.
type Message struct {
	// Kind names the payload, e.g. "log" or "view".
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// NewMessage encodes v as the payload of a kind message.
func NewMessage(kind string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, Data: data}, nil
}

// Encode returns the wire form of m.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
