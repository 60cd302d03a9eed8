// Package recorder keeps a bounded, newest-first diagnostic log of what a
// session controller did. Entries are immutable once appended: payloads are
// encoded to JSON at append time.
package recorder

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 50

// Categories written by the controller.
const (
	CategoryFunctionCall      = "Function Call"
	CategoryFunctionCallError = "Function Call Error"
	CategoryAPIRequest        = "API Request"
	CategoryAPIResponse       = "API Response"
	CategoryAPIError          = "API Error"
	CategorySessionReset      = "Session Reset"
)

// Entry is a single timestamped diagnostic record.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"` // RFC 3339, UTC
	Category  string          `json:"category"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Entry) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Recorder is an append-only ring of entries ordered newest first.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
	now      func() time.Time

	subsMu sync.RWMutex
	subs   map[int]func(Entry)
	nextID int
}

// New creates a recorder holding at most capacity entries.
// A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
		now:      time.Now,
		subs:     make(map[int]func(Entry)),
	}
}

// Capacity returns the maximum number of retained entries.
func (r *Recorder) Capacity() int {
	return r.capacity
}

// Append prepends a new entry stamped with the current time and evicts the
// oldest entry when full. Payloads that cannot be encoded are replaced by
// an object describing the encoding error.
func (r *Recorder) Append(category string, payload any) Entry {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{
			"error": fmt.Sprintf("unencodable payload: %v", err),
		})
	}

	r.mu.Lock()
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
		Category:  category,
		Payload:   raw,
	}

	n := len(r.entries) + 1
	if n > r.capacity {
		n = r.capacity
	}
	next := make([]Entry, n)
	next[0] = entry
	copy(next[1:], r.entries)
	r.entries = next
	r.mu.Unlock()

	r.publish(entry)
	return entry
}

// Entries returns a copy of the buffer, newest first.
func (r *Recorder) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries currently held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset drops every entry.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = make([]Entry, 0, r.capacity)
	r.mu.Unlock()
}

// Subscribe registers fn to be called with every appended entry.
// The returned function removes the subscription.
func (r *Recorder) Subscribe(fn func(Entry)) (cancel func()) {
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

func (r *Recorder) publish(e Entry) {
	r.subsMu.RLock()
	fns := make([]func(Entry), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subsMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
