package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadTimeout      = 120 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultEventBuffer      = 64
)

// ConnConfig configures a websocket connection.
type ConnConfig struct {
	// APIKey is sent as a bearer token when set.
	APIKey string

	// Header holds extra handshake headers.
	Header http.Header

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration

	// EventBuffer is the capacity of the inbound event channel.
	EventBuffer int

	Logger *slog.Logger
}

// ConnOption configures a Conn.
type ConnOption func(*ConnConfig)

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ConnOption {
	return func(c *ConnConfig) {
		c.APIKey = key
	}
}

// WithHeader adds a handshake header.
func WithHeader(key, value string) ConnOption {
	return func(c *ConnConfig) {
		c.Header.Set(key, value)
	}
}

// WithReadTimeout sets how long a read may block before the connection is
// considered dead.
func WithReadTimeout(d time.Duration) ConnOption {
	return func(c *ConnConfig) {
		c.ReadTimeout = d
	}
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
func WithPingInterval(d time.Duration) ConnOption {
	return func(c *ConnConfig) {
		c.PingInterval = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ConnOption {
	return func(c *ConnConfig) {
		c.Logger = logger
	}
}

func defaultConnConfig() *ConnConfig {
	return &ConnConfig{
		Header:           http.Header{},
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadTimeout:      DefaultReadTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		PingInterval:     DefaultPingInterval,
		EventBuffer:      DefaultEventBuffer,
		Logger:           slog.Default(),
	}
}

// Conn is a websocket Transport and Source. Inbound messages are decoded
// into SessionEvents and delivered in arrival order.
type Conn struct {
	cfg    *ConnConfig
	logger *slog.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	events chan SessionEvent
	done   chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial opens a websocket connection to url and starts reading events.
func Dial(ctx context.Context, url string, opts ...ConnOption) (*Conn, error) {
	cfg := defaultConnConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	header := cfg.Header.Clone()
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
		header.Set("OpenAI-Beta", "realtime=v1")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	logger := cfg.Logger.With("component", "realtime.ws")
	logger.Info("connecting to realtime session", "url", url)

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, NewConnectionError(
				"dial failed with status "+resp.Status,
				err,
				resp.StatusCode >= 500,
			)
		}
		return nil, NewConnectionError("dial failed", err, true)
	}

	c := newConn(ws, cfg, logger)
	logger.Info("connected to realtime session")
	return c, nil
}

func newConn(ws *websocket.Conn, cfg *ConnConfig, logger *slog.Logger) *Conn {
	c := &Conn{
		cfg:    cfg,
		logger: logger,
		ws:     ws,
		events: make(chan SessionEvent, cfg.EventBuffer),
		done:   make(chan struct{}),
	}

	ws.SetPingHandler(func(appData string) error {
		c.wsMu.Lock()
		defer c.wsMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go c.readLoop()
	if cfg.PingInterval > 0 {
		go c.keepAlive()
	}
	return c
}

// Events implements Source.
func (c *Conn) Events() <-chan SessionEvent {
	return c.events
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// SendClientEvent implements Transport.
func (c *Conn) SendClientEvent(ctx context.Context, ev ClientEvent) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(ev); err != nil {
		return NewConnectionError("send "+ev.Type+" failed", err, true)
	}

	c.logger.Debug("sent client event", "type", ev.Type, "event_id", ev.EventID)
	return nil
}

// Close sends a close frame and releases the connection.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()

		c.wsMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.ws.Close()
		c.wsMu.Unlock()

		close(c.done)
	})
}

// readLoop is the only goroutine that reads from the socket and the only
// writer of c.events.
func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		if c.cfg.ReadTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally.
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Info("connection closed by peer")
					c.shutdown(ErrConnectionClosed)
				} else {
					c.logger.Error("read error", "error", err)
					c.shutdown(NewConnectionError("read failed", err, true))
				}
			}
			return
		}

		ev, err := ParseEvent(data)
		if err != nil {
			c.logger.Warn("failed to parse event", "error", err)
			continue
		}

		if ev.Type == EventError && ev.Error != nil {
			c.logger.Warn("session error event", "code", ev.Error.Code, "message", ev.Error.Message)
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) keepAlive() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.wsMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.wsMu.Unlock()
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Warn("keepalive ping failed", "error", err)
				return
			}
		}
	}
}

// Ensure Conn implements Transport and Source.
var (
	_ Transport = (*Conn)(nil)
	_ Source    = (*Conn)(nil)
)
