package web

import (
	"context"
	_ "embed"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-toolcall/pkg/controller"
	"github.com/teslashibe/go-toolcall/pkg/hub"
	"github.com/teslashibe/go-toolcall/pkg/projection"
)

//go:embed static/index.html
var indexHTML []byte

// Status is the /api/status response.
type Status struct {
	SessionID   string   `json:"session_id"`
	Active      bool     `json:"active"`
	Registered  bool     `json:"registered"`
	Processed   int      `json:"processed_events"`
	LogEntries  int      `json:"log_entries"`
	LogCapacity int      `json:"log_capacity"`
	Tools       []string `json:"tools"`
	LogClients  int      `json:"log_clients"`
	ViewClients int      `json:"view_clients"`
}

func (s *Server) status(snap controller.Snapshot) Status {
	return Status{
		SessionID:   snap.SessionID,
		Active:      snap.Active,
		Registered:  snap.Registered,
		Processed:   snap.Processed,
		LogEntries:  len(snap.Logs),
		LogCapacity: s.session.Recorder().Capacity(),
		Tools:       s.session.Catalog().Names(),
		LogClients:  s.logHub.ClientCount(),
		ViewClients: s.viewHub.ClientCount(),
	}
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status(s.session.Snapshot()))
}

func (s *Server) handleView(c *fiber.Ctx) error {
	snap := s.session.Snapshot()
	return c.JSON(projection.Render(snap.Active, snap.Outcome))
}

// handleLogs returns the diagnostic log newest first.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot().Logs)
}

// handleTools returns the tool declarations as registered with the session.
func (s *Server) handleTools(c *fiber.Ctx) error {
	ev := controller.RegistrationEvent(s.session.Catalog())
	return c.JSON(ev.Session.Tools)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	return s.applyAndReport(c, s.session.Deactivate)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	return s.applyAndReport(c, s.session.Activate)
}

// applyAndReport queues fn on the controller, waits for it to run and
// returns the resulting status.
func (s *Server) applyAndReport(c *fiber.Ctx, fn func() error) error {
	if err := fn(); err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()
	if err := s.session.Sync(ctx); err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(s.status(s.session.Snapshot()))
}

// handleLogsWS sends the current log, then streams new entries.
func (s *Server) handleLogsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.logHub, conn)

	backlog, err := hub.NewMessage(KindLogs, s.session.Snapshot().Logs)
	if err == nil {
		client.Queue() <- backlog
	}
	client.Run(s.ctx)
}

// handleViewWS streams the projection; the hub replays the latest view.
func (s *Server) handleViewWS(conn *websocket.Conn) {
	hub.NewClient(s.viewHub, conn).Run(s.ctx)
}
