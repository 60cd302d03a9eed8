package controller

import (
	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/realtime"
	"github.com/teslashibe/go-toolcall/pkg/recorder"
	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

// functionCallEntry is the payload of a "Function Call" log entry.
type functionCallEntry struct {
	Name      string         `json:"name"`
	CallID    string         `json:"call_id,omitempty"`
	Arguments map[string]any `json:"arguments"`
}

// callErrorEntry is the payload of a "Function Call Error" log entry.
type callErrorEntry struct {
	Name      string `json:"name"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments"`
	Error     string `json:"error"`
}

// handleEvent runs both checks for one newly arrived event. The event just
// received is the newest in the feed; the first event of the session stays
// pinned as the oldest.
func (c *Controller) handleEvent(ev realtime.SessionEvent) {
	if !c.active {
		c.logger.Debug("dropping event while inactive", "type", ev.Type)
		return
	}

	c.processed++
	if c.oldest == nil {
		first := ev
		c.oldest = &first
	}

	c.checkLifecycle()
	c.checkOutput(ev)
}

// checkOutput dispatches every function call in a response.done event in
// output order. Each call replaces the current outcome.
func (c *Controller) checkOutput(newest realtime.SessionEvent) {
	for _, item := range newest.FunctionCalls() {
		c.dispatch(item)
	}
}

func (c *Controller) dispatch(item realtime.OutputItem) {
	log := c.logger.With("tool", item.Name, "call_id", item.CallID)

	req, err := toolcall.NewRequest(item.CallID, item.Name, item.Arguments)
	if err != nil {
		log.Warn("malformed function call arguments", "error", err)
		c.recordCallError(item, err)
		return
	}

	c.rec.Append(recorder.CategoryFunctionCall, functionCallEntry{
		Name:      req.Name,
		CallID:    req.CallID,
		Arguments: req.Arguments,
	})

	decl, known := c.catalog.Lookup(req.Name)
	if known {
		if err := decl.Validate(req.Arguments); err != nil {
			log.Warn("function call arguments rejected", "error", err)
			c.recordCallError(item, err)
			return
		}
	}

	c.seq++
	outcome := &toolcall.Outcome{
		Seq:       c.seq,
		Request:   req,
		Status:    toolcall.StatusCompleted,
		StartedAt: c.now(),
	}
	c.outcome = outcome

	switch req.Name {
	case catalog.ToolDisplayColorPalette:
		c.handlePalette(outcome)
	case catalog.ToolForeignWorkerEnquiry:
		c.handleEnquiry(outcome)
	default:
		log.Debug("no handler for tool")
	}
}

func (c *Controller) recordCallError(item realtime.OutputItem, err error) {
	c.rec.Append(recorder.CategoryFunctionCallError, callErrorEntry{
		Name:      item.Name,
		CallID:    item.CallID,
		Arguments: item.Arguments,
		Error:     err.Error(),
	})
}
