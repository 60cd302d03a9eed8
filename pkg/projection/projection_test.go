package projection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

func outcome(t *testing.T, name, args string) *toolcall.Outcome {
	t.Helper()
	req, err := toolcall.NewRequest("call_1", name, args)
	if err != nil {
		t.Fatal(err)
	}
	return &toolcall.Outcome{Seq: 1, Request: req, Status: toolcall.StatusCompleted}
}

func TestRenderPlaceholders(t *testing.T) {
	o := outcome(t, catalog.ToolDisplayColorPalette, `{"theme":"x","colors":[]}`)

	if v := Render(false, o); v.Kind != KindNotStarted || v.Message == "" {
		t.Errorf("inactive session should render not started, got %+v", v)
	}
	if v := Render(true, nil); v.Kind != KindPrompt || v.Message == "" {
		t.Errorf("no outcome should render a prompt, got %+v", v)
	}
}

func TestRenderPaletteKeepsOrder(t *testing.T) {
	tests := []struct {
		name   string
		colors []string
	}{
		{"short hex", []string{"#001", "#002", "#003", "#004", "#005"}},
		{"long hex", []string{"#ff0000", "#00ff00", "#0000ff", "#ffff00", "#00ffff"}},
		{"repeated", []string{"#abc", "#abc", "#def", "#abc", "#def"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := `{"theme":"ocean","colors":["` + strings.Join(tt.colors, `","`) + `"]}`
			v := Render(true, outcome(t, catalog.ToolDisplayColorPalette, args))

			if v.Kind != KindPalette || v.Palette == nil {
				t.Fatalf("expected palette view, got %+v", v)
			}
			if len(v.Palette.Swatches) != 5 {
				t.Fatalf("expected 5 swatches, got %d", len(v.Palette.Swatches))
			}
			for i, s := range v.Palette.Swatches {
				if s.Hex != tt.colors[i] {
					t.Errorf("swatch %d: expected %s, got %s", i, tt.colors[i], s.Hex)
				}
			}
			if v.Palette.Theme != "ocean" {
				t.Errorf("unexpected theme %q", v.Palette.Theme)
			}
			if !strings.Contains(v.Palette.Record, catalog.ToolDisplayColorPalette) {
				t.Errorf("record should include the call, got %s", v.Palette.Record)
			}
		})
	}
}

func TestRenderEnquiry(t *testing.T) {
	o := outcome(t, catalog.ToolForeignWorkerEnquiry, `{"question":"Visa?","sessionId":"s-1"}`)
	o.Status = toolcall.StatusPending

	v := Render(true, o)
	if v.Kind != KindEnquiry || v.Enquiry == nil {
		t.Fatalf("expected enquiry view, got %+v", v)
	}
	if v.Enquiry.Question != "Visa?" || !v.Enquiry.Pending() {
		t.Errorf("unexpected pending card %+v", v.Enquiry)
	}

	resolved := o.Resolve("Yes.", time.Now())
	v = Render(true, resolved)
	if v.Enquiry.Pending() || v.Enquiry.Answer != "Yes." {
		t.Errorf("unexpected resolved card %+v", v.Enquiry)
	}

	failed := o.Fail(errors.New("down"), time.Now())
	v = Render(true, failed)
	if v.Enquiry.Status != toolcall.StatusFailed || v.Enquiry.Error != "down" {
		t.Errorf("unexpected failed card %+v", v.Enquiry)
	}
}

func TestRenderUnknownTool(t *testing.T) {
	v := Render(true, outcome(t, "launch_rocket", `{}`))
	if v.Kind != KindNone || v.Palette != nil || v.Enquiry != nil {
		t.Errorf("unknown tools render nothing, got %+v", v)
	}
	if Terminal(v) != "" {
		t.Error("terminal output should be empty for unknown tools")
	}
}

func TestRenderIsPure(t *testing.T) {
	o := outcome(t, catalog.ToolDisplayColorPalette, `{"theme":"a","colors":["#111","#222","#333","#444","#555"]}`)
	a := Render(true, o)
	b := Render(true, o)
	if a.Palette.Record != b.Palette.Record || len(a.Palette.Swatches) != len(b.Palette.Swatches) {
		t.Error("render should be deterministic")
	}
	a.Palette.Swatches[0].Hex = "#000"
	if o.Request.Strings("colors")[0] != "#111" {
		t.Error("render must not alias the outcome")
	}
}

func TestTerminal(t *testing.T) {
	palette := Render(true, outcome(t, catalog.ToolDisplayColorPalette,
		`{"theme":"dusk","colors":["#111","#222","#333","#444","#555"]}`))
	out := Terminal(palette)
	for _, want := range []string{"dusk", "#111", "#555"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal palette missing %q", want)
		}
	}

	o := outcome(t, catalog.ToolForeignWorkerEnquiry, `{"question":"Visa?","sessionId":"s"}`)
	o.Status = toolcall.StatusPending
	if out := Terminal(Render(true, o)); !strings.Contains(out, "Visa?") || !strings.Contains(out, "Waiting") {
		t.Errorf("unexpected pending card %q", out)
	}

	if out := Terminal(Render(false, nil)); !strings.Contains(out, NotStartedMessage) {
		t.Errorf("unexpected placeholder %q", out)
	}
}
