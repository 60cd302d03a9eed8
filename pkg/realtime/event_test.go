package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseEvent(t *testing.T) {
	t.Run("session created", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"event_id":"evt_1","type":"session.created","session":{"id":"sess_1"}}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if ev.Type != EventSessionCreated {
			t.Errorf("expected session.created, got %q", ev.Type)
		}
		if !strings.Contains(string(ev.Raw), "sess_1") {
			t.Error("raw bytes should be kept")
		}
	})

	t.Run("response done with calls", func(t *testing.T) {
		data := `{"type":"response.done","response":{"id":"resp_1","status":"completed","output":[
			{"type":"message","id":"msg_1"},
			{"type":"function_call","name":"a","call_id":"c1","arguments":"{}"},
			{"type":"function_call","name":"b","call_id":"c2","arguments":"{\"x\":1}"}
		]}}`
		ev, err := ParseEvent([]byte(data))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		calls := ev.FunctionCalls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(calls))
		}
		if calls[0].Name != "a" || calls[1].Name != "b" {
			t.Errorf("calls out of order: %+v", calls)
		}
		if calls[1].Arguments != `{"x":1}` {
			t.Errorf("unexpected arguments %q", calls[1].Arguments)
		}
	})

	t.Run("error event", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad","message":"nope"}}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if ev.Error == nil || ev.Error.Message != "nope" {
			t.Errorf("unexpected error detail %+v", ev.Error)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{`not json`, `{}`, `[]`} {
			if _, err := ParseEvent([]byte(in)); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("%s: expected ErrInvalidEvent, got %v", in, err)
			}
		}
	})
}

func TestFunctionCallsIgnoresOtherTypes(t *testing.T) {
	ev := SessionEvent{Type: EventSessionCreated}
	if calls := ev.FunctionCalls(); calls != nil {
		t.Errorf("expected no calls, got %v", calls)
	}

	ev = SessionEvent{Type: EventResponseDone}
	if calls := ev.FunctionCalls(); calls != nil {
		t.Errorf("expected no calls without response, got %v", calls)
	}
}

func TestNewSessionUpdate(t *testing.T) {
	ev := NewSessionUpdate([]FunctionTool{{
		Type:        "function",
		Name:        "lookup",
		Description: "Look something up",
		Parameters:  map[string]any{"type": "object"},
	}})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
		Session struct {
			Tools []struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"tools"`
			ToolChoice string `json:"tool_choice"`
		} `json:"session"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	if got.Type != "session.update" {
		t.Errorf("expected session.update, got %q", got.Type)
	}
	if !strings.HasPrefix(got.EventID, "event_") {
		t.Errorf("unexpected event id %q", got.EventID)
	}
	if got.Session.ToolChoice != "auto" {
		t.Errorf("expected tool_choice auto, got %q", got.Session.ToolChoice)
	}
	if len(got.Session.Tools) != 1 || got.Session.Tools[0].Name != "lookup" || got.Session.Tools[0].Type != "function" {
		t.Errorf("unexpected tools %+v", got.Session.Tools)
	}
	if got.Response != nil {
		t.Error("session.update must not carry a response")
	}
}

func TestNewSessionUpdateEmptyTools(t *testing.T) {
	data, _ := json.Marshal(NewSessionUpdate(nil))
	if !strings.Contains(string(data), `"tools":[]`) {
		t.Errorf("expected empty tools array, got %s", data)
	}
}

func TestNewResponseCreate(t *testing.T) {
	ev := NewResponseCreate("Say hi.")
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	want := `"response":{"instructions":"Say hi."}`
	if !strings.Contains(string(data), want) {
		t.Errorf("expected %s in %s", want, data)
	}
	if strings.Contains(string(data), `"session"`) {
		t.Error("response.create must not carry a session")
	}

	if NewResponseCreate("a").EventID == NewResponseCreate("a").EventID {
		t.Error("event ids should be unique")
	}
}
