// Package web serves the session dashboard: the current tool view, the
// diagnostic log, and live websocket feeds of both.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/controller"
	"github.com/teslashibe/go-toolcall/pkg/hub"
	"github.com/teslashibe/go-toolcall/pkg/projection"
	"github.com/teslashibe/go-toolcall/pkg/recorder"
)

// Message kinds sent on the websocket feeds.
const (
	KindLog  = "log"
	KindLogs = "logs"
	KindView = "view"
)

// DefaultPort is used when no port is configured.
const DefaultPort = "8181"

// Session is the controller surface the dashboard needs.
type Session interface {
	Snapshot() controller.Snapshot
	OnChange(fn func(controller.Snapshot)) (cancel func())
	Activate() error
	Deactivate() error
	Sync(ctx context.Context) error
	Recorder() *recorder.Recorder
	Catalog() *catalog.Catalog
}

// Server is the dashboard HTTP server.
type Server struct {
	app     *fiber.App
	port    string
	session Session
	logger  *slog.Logger

	logHub  *hub.Hub
	viewHub *hub.Hub

	// ctx scopes websocket clients; replaced by Start.
	ctx context.Context

	viewMu   sync.Mutex
	lastView []byte
}

// Option configures a Server.
type Option func(*Server)

// WithPort sets the listen port.
func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a dashboard for session.
func NewServer(session Session, opts ...Option) *Server {
	s := &Server{
		port:    DefaultPort,
		session: session,
		logger:  slog.Default(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.logHub = hub.New("logs", hub.WithLogger(s.logger))
	s.viewHub = hub.New("view", hub.WithLogger(s.logger), hub.WithReplay())

	app := fiber.New(fiber.Config{
		AppName:               "Tool Call Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/view", s.handleView)
	api.Get("/logs", s.handleLogs)
	api.Get("/tools", s.handleTools)
	api.Post("/session/reset", s.handleReset)
	api.Post("/session/start", s.handleStart)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/view", websocket.New(s.handleViewWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs, wires them to the session and listens until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx

	go s.logHub.Run(ctx)
	go s.viewHub.Run(ctx)

	unsubLogs := s.session.Recorder().Subscribe(func(e recorder.Entry) {
		if err := s.logHub.BroadcastJSON(KindLog, e); err != nil {
			s.logger.Warn("broadcast log entry failed", "error", err)
		}
	})
	defer unsubLogs()

	unsubView := s.session.OnChange(s.publishView)
	defer unsubView()
	s.publishView(s.session.Snapshot())

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// publishView broadcasts the projection when it differs from the last one
// sent. It runs on the controller's scheduler, so it must not block.
func (s *Server) publishView(snap controller.Snapshot) {
	view := projection.Render(snap.Active, snap.Outcome)
	data, err := json.Marshal(view)
	if err != nil {
		s.logger.Warn("encode view failed", "error", err)
		return
	}

	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if bytes.Equal(data, s.lastView) {
		return
	}
	s.lastView = data
	s.viewHub.Broadcast(hub.Message{Kind: KindView, Data: data})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
