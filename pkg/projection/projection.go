// Package projection renders the current tool outcome into a display form.
// Render is pure: the same inputs always give the same View.
package projection

import (
	"encoding/json"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

// Kind identifies which view to draw.
type Kind string

const (
	KindNotStarted Kind = "not_started"
	KindPrompt     Kind = "prompt"
	KindPalette    Kind = "palette"
	KindEnquiry    Kind = "enquiry"
	// KindNone is rendered for tools without a view.
	KindNone Kind = "none"
)

// Placeholder texts.
const (
	NotStartedMessage = "Start the session to use the tools."
	PromptMessage     = "Ask for a color palette or a question about working abroad."
)

// View is the display structure for one state.
type View struct {
	Kind    Kind         `json:"kind"`
	Message string       `json:"message,omitempty"`
	Palette *PaletteView `json:"palette,omitempty"`
	Enquiry *EnquiryView `json:"enquiry,omitempty"`
}

// PaletteView shows one swatch per color in call order, with the raw call
// record beneath.
type PaletteView struct {
	Theme    string   `json:"theme"`
	Swatches []Swatch `json:"swatches"`
	Record   string   `json:"record"`
}

// Swatch is a single colored block.
type Swatch struct {
	Hex string `json:"hex"`
}

// EnquiryView is a question card with its answer, or a pending marker.
type EnquiryView struct {
	Question  string          `json:"question"`
	SessionID string          `json:"session_id"`
	Status    toolcall.Status `json:"status"`
	Answer    string          `json:"answer,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Pending reports whether the answer is still outstanding.
func (e *EnquiryView) Pending() bool {
	return e.Status == toolcall.StatusPending
}

// Render projects (active, outcome) into a View.
func Render(active bool, outcome *toolcall.Outcome) View {
	switch {
	case !active:
		return View{Kind: KindNotStarted, Message: NotStartedMessage}
	case outcome == nil:
		return View{Kind: KindPrompt, Message: PromptMessage}
	}

	switch outcome.Name() {
	case catalog.ToolDisplayColorPalette:
		return View{Kind: KindPalette, Palette: renderPalette(outcome.Request)}
	case catalog.ToolForeignWorkerEnquiry:
		return View{Kind: KindEnquiry, Enquiry: &EnquiryView{
			Question:  outcome.Request.String("question"),
			SessionID: outcome.Request.String("sessionId"),
			Status:    outcome.Status,
			Answer:    outcome.Answer,
			Error:     outcome.Error,
		}}
	default:
		return View{Kind: KindNone}
	}
}

func renderPalette(req toolcall.Request) *PaletteView {
	colors := req.Strings("colors")
	swatches := make([]Swatch, len(colors))
	for i, hex := range colors {
		swatches[i] = Swatch{Hex: hex}
	}
	return &PaletteView{
		Theme:    req.String("theme"),
		Swatches: swatches,
		Record:   callRecord(req),
	}
}

func callRecord(req toolcall.Request) string {
	record := map[string]any{
		"name":      req.Name,
		"arguments": req.Arguments,
	}
	if req.CallID != "" {
		record["call_id"] = req.CallID
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return req.ArgumentsJSON
	}
	return string(data)
}
