// Package toolcall holds the function-call request and outcome records shared
// by the controller, the projection and the dashboard.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedArguments indicates call arguments are not a JSON object.
var ErrMalformedArguments = errors.New("toolcall: malformed arguments")

// Request is a function call extracted from a response.done output entry.
type Request struct {
	CallID        string         `json:"call_id,omitempty"`
	Name          string         `json:"name"`
	ArgumentsJSON string         `json:"arguments"`
	Arguments     map[string]any `json:"parsed_arguments"`
}

// NewRequest parses argumentsJSON into a Request. The arguments must decode
// to a JSON object.
func NewRequest(callID, name, argumentsJSON string) (Request, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if args == nil {
		return Request{}, fmt.Errorf("%w: arguments must be an object", ErrMalformedArguments)
	}
	return Request{
		CallID:        callID,
		Name:          name,
		ArgumentsJSON: argumentsJSON,
		Arguments:     args,
	}, nil
}

// String returns the named argument if it is a string.
func (r Request) String(key string) string {
	s, _ := r.Arguments[key].(string)
	return s
}

// Strings returns the named argument as a string slice, skipping non-string
// elements.
func (r Request) Strings(key string) []string {
	raw, ok := r.Arguments[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Status is the resolution state of an outcome.
type Status string

const (
	// StatusCompleted means the result was produced locally and synchronously.
	StatusCompleted Status = "completed"
	// StatusPending means a remote call is in flight.
	StatusPending Status = "pending"
	// StatusResolved means the remote call returned an answer.
	StatusResolved Status = "resolved"
	// StatusFailed means the remote call failed.
	StatusFailed Status = "failed"
)

// Outcome is the most recent function call together with its resolution.
// Outcomes are treated as values: updates produce a modified copy.
type Outcome struct {
	// Seq orders outcomes within a controller; later calls have larger Seq.
	Seq        uint64    `json:"seq"`
	Request    Request   `json:"request"`
	Status     Status    `json:"status"`
	Answer     string    `json:"answer,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
}

// Name is shorthand for o.Request.Name.
func (o *Outcome) Name() string {
	return o.Request.Name
}

// Resolve returns a copy of o marked resolved with answer.
func (o Outcome) Resolve(answer string, at time.Time) *Outcome {
	o.Status = StatusResolved
	o.Answer = answer
	o.ResolvedAt = at
	return &o
}

// Fail returns a copy of o marked failed with err.
func (o Outcome) Fail(err error, at time.Time) *Outcome {
	o.Status = StatusFailed
	if err != nil {
		o.Error = err.Error()
	}
	o.ResolvedAt = at
	return &o
}

// Clone returns an independent copy safe to hand to other goroutines.
func (o *Outcome) Clone() *Outcome {
	if o == nil {
		return nil
	}
	c := *o
	c.Request.Arguments = cloneMap(o.Request.Arguments)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
