package recorder

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendNewestFirst(t *testing.T) {
	r := New(DefaultCapacity)

	r.Append("first", 1)
	r.Append("second", 2)

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Category != "second" || entries[1].Category != "first" {
		t.Errorf("expected newest first, got %s, %s", entries[0].Category, entries[1].Category)
	}
}

func TestCapacityBound(t *testing.T) {
	r := New(50)

	for i := 0; i < 60; i++ {
		r.Append("entry", map[string]int{"n": i})
		if r.Len() > 50 {
			t.Fatalf("length %d exceeds capacity after %d appends", r.Len(), i+1)
		}
	}

	entries := r.Entries()
	if len(entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(entries))
	}

	// The 50 most recent appends are n=59..10, newest first.
	for i, e := range entries {
		var p struct{ N int }
		if err := e.Decode(&p); err != nil {
			t.Fatalf("decode entry %d: %v", i, err)
		}
		if want := 59 - i; p.N != want {
			t.Errorf("entry %d: expected n=%d, got %d", i, want, p.N)
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	if got := New(0).Capacity(); got != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, got)
	}
}

func TestEntriesAreImmutable(t *testing.T) {
	r := New(10)
	payload := map[string]string{"question": "original"}
	r.Append(CategoryAPIRequest, payload)

	// Mutating the caller's value after append must not leak into the log.
	payload["question"] = "changed"

	entries := r.Entries()
	var got map[string]string
	if err := entries[0].Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["question"] != "original" {
		t.Errorf("entry was mutated: %v", got)
	}

	// Mutating a returned copy must not affect the recorder either.
	entries[0].Category = "tampered"
	if r.Entries()[0].Category != CategoryAPIRequest {
		t.Error("returned slice aliases internal buffer")
	}
}

func TestTimestamp(t *testing.T) {
	r := New(10)
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	e := r.Append("x", nil)
	if e.Timestamp != "2024-05-01T12:30:00Z" {
		t.Errorf("unexpected timestamp %s", e.Timestamp)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
		t.Errorf("timestamp not ISO-8601: %v", err)
	}
}

func TestUnencodablePayload(t *testing.T) {
	r := New(10)
	e := r.Append("bad", map[string]any{"fn": func() {}})

	var got map[string]string
	if err := e.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["error"] == "" {
		t.Error("expected error description in payload")
	}
}

func TestReset(t *testing.T) {
	r := New(10)
	r.Append("a", nil)
	r.Append("b", nil)

	r.Reset()
	if r.Len() != 0 {
		t.Errorf("expected empty recorder, got %d", r.Len())
	}

	r.Append(CategorySessionReset, nil)
	if r.Len() != 1 {
		t.Errorf("expected 1 entry after reset+append, got %d", r.Len())
	}
}

func TestSubscribe(t *testing.T) {
	r := New(10)

	var mu sync.Mutex
	var seen []string
	cancel := r.Subscribe(func(e Entry) {
		mu.Lock()
		seen = append(seen, e.Category)
		mu.Unlock()
	})

	r.Append("one", nil)
	r.Append("two", nil)
	cancel()
	r.Append("three", nil)

	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(seen) != "[one two]" {
		t.Errorf("unexpected notifications %v", seen)
	}
}

func TestConcurrentAppend(t *testing.T) {
	r := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Append("entry", i)
			_ = r.Entries()
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", r.Len())
	}
}
