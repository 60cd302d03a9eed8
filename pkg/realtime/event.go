// Package realtime models the event stream of a realtime conversational
// session: inbound server events, outbound client events, and the transport
// that carries them.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Inbound event types the controller recognizes.
const (
	EventSessionCreated = "session.created"
	EventSessionUpdated = "session.updated"
	EventResponseDone   = "response.done"
	EventError          = "error"
)

// Outbound event types.
const (
	ClientSessionUpdate  = "session.update"
	ClientResponseCreate = "response.create"
)

// OutputFunctionCall is the output entry type for a tool invocation.
const OutputFunctionCall = "function_call"

// ToolChoiceAuto lets the remote agent decide when to call tools.
const ToolChoiceAuto = "auto"

// SessionEvent is one server event. Only the fields the controller inspects
// are decoded; the original bytes are kept in Raw.
type SessionEvent struct {
	EventID  string          `json:"event_id,omitempty"`
	Type     string          `json:"type"`
	Response *Response       `json:"response,omitempty"`
	Error    *ErrorDetail    `json:"error,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Response is the payload of a response.done event.
type Response struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
	Output []OutputItem `json:"output,omitempty"`
}

// OutputItem is one entry of a response's output list.
type OutputItem struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ErrorDetail is the payload of an error event.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ParseEvent decodes a server event.
func ParseEvent(data []byte) (SessionEvent, error) {
	var ev SessionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return SessionEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.Type == "" {
		return SessionEvent{}, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// FunctionCalls returns the function_call entries of a response.done event
// in output order. Other event types yield nil.
func (e SessionEvent) FunctionCalls() []OutputItem {
	if e.Type != EventResponseDone || e.Response == nil {
		return nil
	}
	var calls []OutputItem
	for _, item := range e.Response.Output {
		if item.Type == OutputFunctionCall {
			calls = append(calls, item)
		}
	}
	return calls
}

// ClientEvent is an outbound control event.
type ClientEvent struct {
	EventID  string          `json:"event_id,omitempty"`
	Type     string          `json:"type"`
	Session  *SessionUpdate  `json:"session,omitempty"`
	Response *ResponseCreate `json:"response,omitempty"`
}

// SessionUpdate carries tool registration.
type SessionUpdate struct {
	Tools      []FunctionTool `json:"tools"`
	ToolChoice string         `json:"tool_choice"`
}

// FunctionTool is a tool declaration in the session's wire format.
type FunctionTool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// ResponseCreate asks the remote agent to respond, steered by Instructions.
type ResponseCreate struct {
	Instructions string `json:"instructions"`
}

// NewSessionUpdate builds the tool registration event.
func NewSessionUpdate(tools []FunctionTool) ClientEvent {
	if tools == nil {
		tools = []FunctionTool{}
	}
	return ClientEvent{
		EventID: newEventID(),
		Type:    ClientSessionUpdate,
		Session: &SessionUpdate{
			Tools:      tools,
			ToolChoice: ToolChoiceAuto,
		},
	}
}

// NewResponseCreate builds a follow-up instruction event.
func NewResponseCreate(instructions string) ClientEvent {
	return ClientEvent{
		EventID: newEventID(),
		Type:    ClientResponseCreate,
		Response: &ResponseCreate{
			Instructions: instructions,
		},
	}
}

func newEventID() string {
	return "event_" + uuid.NewString()
}
