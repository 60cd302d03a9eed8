package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-toolcall/pkg/predict"
	"github.com/teslashibe/go-toolcall/pkg/realtime"
	"github.com/teslashibe/go-toolcall/pkg/recorder"
	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

// apiErrorEntry is the payload of an "API Error" log entry.
type apiErrorEntry struct {
	Error      string         `json:"error"`
	StatusCode int            `json:"status_code,omitempty"`
	Body       map[string]any `json:"body,omitempty"`
}

// handlePalette schedules the palette follow-up after FollowUpDelay. The
// palette itself is rendered from the outcome; nothing else is logged.
func (c *Controller) handlePalette(outcome *toolcall.Outcome) {
	gen := c.generation
	var id uint64
	timer := time.AfterFunc(c.cfg.FollowUpDelay, func() {
		_ = c.post(func() {
			c.untrack(id)
			if c.cfg.CancelOnReset && gen != c.generation {
				return
			}
			c.followUp(PaletteFollowUp)
		})
	})
	id = c.track(func() { timer.Stop() })

	c.logger.Debug("palette follow-up scheduled", "seq", outcome.Seq, "delay", c.cfg.FollowUpDelay)
}

// handleEnquiry records the outbound payload and starts the remote call on
// its own goroutine. The completion is queued back to the scheduler.
func (c *Controller) handleEnquiry(outcome *toolcall.Outcome) {
	outcome.Status = toolcall.StatusPending

	req := predict.NewRequest(
		outcome.Request.String("question"),
		outcome.Request.String("sessionId"),
	)
	c.rec.Append(recorder.CategoryAPIRequest, req)

	gen := c.generation
	seq := outcome.Seq
	ctx, cancel := context.WithCancel(c.ctx)
	id := c.track(cancel)
	predictor := c.predictor

	go func() {
		defer cancel()

		resp, err := safePredict(ctx, predictor, req)
		_ = c.post(func() {
			c.untrack(id)
			if c.cfg.CancelOnReset && gen != c.generation {
				c.logger.Debug("dropping enquiry result from previous session", "seq", seq)
				return
			}
			c.completeEnquiry(seq, resp, err)
		})
	}()
}

// completeEnquiry logs the result and sends exactly one follow-up.
func (c *Controller) completeEnquiry(seq uint64, resp *predict.Response, err error) {
	at := c.now()

	if err != nil {
		entry := apiErrorEntry{Error: err.Error()}
		var apiErr *predict.APIError
		if errors.As(err, &apiErr) {
			entry.StatusCode = apiErr.StatusCode
		}
		if resp != nil {
			entry.Body = resp.Body
		}
		c.rec.Append(recorder.CategoryAPIError, entry)
		c.logger.Warn("enquiry failed", "seq", seq, "error", err)

		if c.isCurrent(seq) {
			c.outcome = c.outcome.Fail(err, at)
		}
		c.followUp(ApologyFollowUp)
		return
	}

	c.rec.Append(recorder.CategoryAPIResponse, resp.Body)
	if c.isCurrent(seq) {
		c.outcome = c.outcome.Resolve(resp.Text, at)
	}
	c.followUp(resp.Text)
}

func (c *Controller) isCurrent(seq uint64) bool {
	return c.outcome != nil && c.outcome.Seq == seq
}

func (c *Controller) followUp(instructions string) {
	if err := c.send(realtime.NewResponseCreate(instructions)); err != nil {
		c.logger.Error("follow-up instruction failed", "error", err)
	}
}

// safePredict converts a missing predictor or a predictor panic into an error.
func safePredict(ctx context.Context, p Predictor, req predict.Request) (resp *predict.Response, err error) {
	if p == nil {
		return nil, ErrNoPredictor
	}
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("controller: predictor panicked: %v", r)
		}
	}()
	resp, err = p.Predict(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("controller: predictor returned no response")
	}
	return resp, err
}
