package realtime

import (
	"context"
	"sync"
)

// Mock is an in-memory Transport and Source for testing.
type Mock struct {
	mu sync.Mutex

	events    chan SessionEvent
	outbound  chan ClientEvent
	closeOnce sync.Once

	// SendFunc overrides SendClientEvent when set.
	SendFunc func(ctx context.Context, ev ClientEvent) error

	// Sent captures every successfully sent client event.
	Sent []ClientEvent
}

// NewMock creates a Mock whose inbound and outbound channels hold up to
// buffer events.
func NewMock(buffer int) *Mock {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Mock{
		events:   make(chan SessionEvent, buffer),
		outbound: make(chan ClientEvent, buffer),
	}
}

// SendClientEvent implements Transport.
func (m *Mock) SendClientEvent(ctx context.Context, ev ClientEvent) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, ev); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Sent = append(m.Sent, ev)
	m.mu.Unlock()

	select {
	case m.outbound <- ev:
	default:
	}
	return nil
}

// Events implements Source.
func (m *Mock) Events() <-chan SessionEvent {
	return m.events
}

// Outbound delivers sent client events as they happen. Events are dropped
// from this channel, never from Sent, when it is full.
func (m *Mock) Outbound() <-chan ClientEvent {
	return m.outbound
}

// SentEvents returns a copy of the captured client events.
func (m *Mock) SentEvents() []ClientEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ClientEvent(nil), m.Sent...)
}

// SentOfType returns captured client events with the given type.
func (m *Mock) SentOfType(typ string) []ClientEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ClientEvent
	for _, ev := range m.Sent {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Test helpers

// Emit queues an inbound server event.
func (m *Mock) Emit(ev SessionEvent) {
	m.events <- ev
}

// SimulateSessionCreated queues a session.created event.
func (m *Mock) SimulateSessionCreated() {
	m.Emit(SessionEvent{Type: EventSessionCreated})
}

// SimulateFunctionCall queues a response.done event carrying one function call.
func (m *Mock) SimulateFunctionCall(callID, name, arguments string) {
	m.Emit(ResponseDone(OutputItem{
		Type:      OutputFunctionCall,
		CallID:    callID,
		Name:      name,
		Arguments: arguments,
	}))
}

// CloseEvents ends the inbound feed.
func (m *Mock) CloseEvents() {
	m.closeOnce.Do(func() { close(m.events) })
}

// ResponseDone builds a response.done event with the given output entries.
func ResponseDone(output ...OutputItem) SessionEvent {
	return SessionEvent{
		Type: EventResponseDone,
		Response: &Response{
			Status: "completed",
			Output: output,
		},
	}
}

var (
	_ Transport = (*Mock)(nil)
	_ Source    = (*Mock)(nil)
)
