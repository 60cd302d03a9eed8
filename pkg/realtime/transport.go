package realtime

import "context"

// Transport is the outbound control channel of a session.
type Transport interface {
	// SendClientEvent writes one control event to the remote session.
	SendClientEvent(ctx context.Context, ev ClientEvent) error
}

// Source is the ordered inbound event feed of a session.
// The channel is closed when the session ends.
type Source interface {
	Events() <-chan SessionEvent
}
