package controller

import (
	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/realtime"
)

// RegistrationEvent builds the session.update event that registers every
// tool in cat.
func RegistrationEvent(cat *catalog.Catalog) realtime.ClientEvent {
	decls := cat.Declarations()
	tools := make([]realtime.FunctionTool, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, realtime.FunctionTool{
			Type:        "function",
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return realtime.NewSessionUpdate(tools)
}

// checkLifecycle registers the catalog once per session, keyed on the
// oldest event seen in the session. The flag is only set after a successful
// send, so a failed registration is retried on the next event.
func (c *Controller) checkLifecycle() {
	if c.registered || c.oldest == nil || c.oldest.Type != realtime.EventSessionCreated {
		return
	}

	if err := c.send(RegistrationEvent(c.catalog)); err != nil {
		c.logger.Error("tool registration failed", "error", err)
		return
	}
	c.registered = true
	c.logger.Info("tools registered", "session_id", c.sessionID, "count", c.catalog.Len())
}
