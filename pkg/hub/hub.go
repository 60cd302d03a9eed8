package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink receives messages from the hub. Client implements it for websocket
// connections; tests may use a channel-backed sink.
type Sink interface {
	// Queue returns the channel the hub writes to. The hub closes it when
	// the sink is dropped.
	Queue() chan Message
}

// Hub maintains the set of registered sinks and broadcasts to them.
type Hub struct {
	name   string
	logger *slog.Logger

	sinks      map[Sink]bool
	broadcast  chan Message
	register   chan Sink
	unregister chan Sink
	done       chan struct{}

	// mu guards sinks for ClientCount and latest for new sinks.
	mu     sync.RWMutex
	latest *Message
	replay bool

	running atomic.Bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithReplay makes the hub send the most recent message to every newly
// registered sink.
func WithReplay() Option {
	return func(h *Hub) {
		h.replay = true
	}
}

// New creates a Hub.
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		logger:     slog.Default(),
		sinks:      make(map[Sink]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan Sink),
		unregister: make(chan Sink),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub", "hub", name)
	return h
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every registered sink. A hub runs once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
		h.mu.Lock()
		for s := range h.sinks {
			delete(h.sinks, s)
			close(s.Queue())
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sinks[s] = true
			count := len(h.sinks)
			latest := h.latest
			h.mu.Unlock()
			if h.replay && latest != nil {
				select {
				case s.Queue() <- *latest:
				default:
				}
			}
			h.logger.Debug("client connected", "clients", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sinks[s]; ok {
				delete(h.sinks, s)
				close(s.Queue())
			}
			count := len(h.sinks)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "clients", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.latest = &msg
			for s := range h.sinks {
				select {
				case s.Queue() <- msg:
				default:
					// Too slow; drop the client rather than block the others.
					close(s.Queue())
					delete(h.sinks, s)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds s. It blocks until the hub loop accepts it or ctx ends.
func (h *Hub) Register(ctx context.Context, s Sink) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Unregister removes s. It is safe to call for sinks already dropped.
func (h *Hub) Unregister(ctx context.Context, s Sink) {
	select {
	case h.unregister <- s:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Broadcast queues msg for every sink. Messages are dropped when the
// broadcast queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message", "kind", msg.Kind)
	}
}

// BroadcastJSON encodes v as a kind message and broadcasts it.
func (h *Hub) BroadcastJSON(kind string, v any) error {
	msg, err := NewMessage(kind, v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of registered sinks.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Name returns the hub's name.
func (h *Hub) Name() string {
	return h.name
}
