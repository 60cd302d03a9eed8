package predict

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("expected ErrMissingEndpoint, got %v", err)
	}
}

func TestPredictSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Answer.","chatId":"c-1"}`))
	}))
	defer srv.Close()

	c, err := New(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Predict(context.Background(), NewRequest("How do I apply?", "sess-9"))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	if resp.Text != "Answer." {
		t.Errorf("expected Answer., got %q", resp.Text)
	}
	if resp.Body["chatId"] != "c-1" {
		t.Errorf("full body should be kept, got %v", resp.Body)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	if gotBody["question"] != "How do I apply?" {
		t.Errorf("unexpected question %v", gotBody["question"])
	}
	oc, _ := gotBody["overrideConfig"].(map[string]any)
	if oc["sessionId"] != "sess-9" {
		t.Errorf("unexpected overrideConfig %v", gotBody["overrideConfig"])
	}
}

func TestPredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		hasBody bool
	}{
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `upstream down`,
			check: func(err error) bool {
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadGateway && IsRetryable(err)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":"bad"}`,
			check: func(err error) bool {
				var apiErr *APIError
				return errors.As(err, &apiErr) && !IsRetryable(err)
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>oops</html>`,
			check:  func(err error) bool { return errors.Is(err, ErrInvalidResponse) },
		},
		{
			name:   "null body",
			status: http.StatusOK,
			body:   `null`,
			check:  func(err error) bool { return errors.Is(err, ErrInvalidResponse) },
		},
		{
			name:    "missing text",
			status:  http.StatusOK,
			body:    `{"answer":"x"}`,
			check:   func(err error) bool { return errors.Is(err, ErrMissingText) },
			hasBody: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := New(WithEndpoint(srv.URL))
			resp, err := c.Predict(context.Background(), NewRequest("q", "s"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if tt.hasBody && (resp == nil || resp.Body["answer"] != "x") {
				t.Errorf("expected decoded body alongside error, got %+v", resp)
			}
		})
	}
}

func TestPredictNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(WithEndpoint(url))
	if _, err := c.Predict(context.Background(), NewRequest("q", "s")); err == nil {
		t.Error("expected network error")
	}
}

func TestPredictTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, _ := New(WithEndpoint(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	if _, err := c.Predict(context.Background(), NewRequest("q", "s")); err == nil {
		t.Error("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Error("timeout not applied")
	}
}

func TestPredictEmptyQuestion(t *testing.T) {
	c, _ := New(WithEndpoint("http://127.0.0.1:1"))
	if _, err := c.Predict(context.Background(), NewRequest("", "s")); !errors.Is(err, ErrMissingQuestion) {
		t.Errorf("expected ErrMissingQuestion, got %v", err)
	}
}

func TestPredictRecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(WithEndpoint(srv.URL), WithTracer(tp.Tracer("test")))
	_, _ = c.Predict(context.Background(), NewRequest("q", "sess-1"))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "predict.Predict" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("failed call should mark the span as error, got %v", span.Status())
	}

	var sawSession, sawStatus bool
	for _, attr := range span.Attributes() {
		switch attr.Key {
		case "predict.session_id":
			sawSession = attr.Value.AsString() == "sess-1"
		case "http.status_code":
			sawStatus = attr.Value.AsInt64() == http.StatusServiceUnavailable
		}
	}
	if !sawSession || !sawStatus {
		t.Errorf("missing span attributes %v", span.Attributes())
	}
}
