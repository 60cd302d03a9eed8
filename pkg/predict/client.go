// Package predict is a client for the remote prediction service that answers
// foreign worker enquiries.
//
// The service accepts
//
//	POST <endpoint>
//	{"question": "...", "overrideConfig": {"sessionId": "..."}}
//
// and replies with a JSON object carrying at least a "text" field.
package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teslashibe/go-toolcall/internal/httpc"
)

const tracerName = "github.com/teslashibe/go-toolcall/pkg/predict"

// maxErrorBody bounds how much of a failed response is kept in APIError.
const maxErrorBody = 4 << 10

// Request is the outbound payload.
type Request struct {
	Question       string         `json:"question"`
	OverrideConfig OverrideConfig `json:"overrideConfig"`
}

// OverrideConfig carries per-call settings.
type OverrideConfig struct {
	SessionID string `json:"sessionId"`
}

// NewRequest builds a Request for question within sessionID.
func NewRequest(question, sessionID string) Request {
	return Request{
		Question:       question,
		OverrideConfig: OverrideConfig{SessionID: sessionID},
	}
}

// Response is a decoded prediction result.
type Response struct {
	// Text is the answer.
	Text string

	// Body is the full decoded response object.
	Body map[string]any
}

// Config holds client configuration.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Config)

// WithEndpoint sets the prediction URL.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: httpc.DefaultTimeout,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	return nil
}

// Client calls the prediction endpoint. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		http:     hc,
		logger:   logger.With("component", "predict"),
		tracer:   tracer,
	}, nil
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict posts req and decodes the answer. Any transport, status or decode
// failure is returned as an error; a response without a string text field
// yields ErrMissingText alongside the decoded body.
func (c *Client) Predict(ctx context.Context, req Request) (*Response, error) {
	if req.Question == "" {
		return nil, ErrMissingQuestion
	}

	ctx, span := c.tracer.Start(ctx, "predict.Predict",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("predict.session_id", req.OverrideConfig.SessionID),
			attribute.Int("predict.question_length", len(req.Question)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.predict(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("prediction failed", "error", err, "duration", time.Since(start))
		return resp, err
	}

	span.SetAttributes(attribute.Int("predict.answer_length", len(resp.Text)))
	c.logger.Debug("prediction complete", "duration", time.Since(start))
	return resp, nil
}

func (c *Client) predict(ctx context.Context, req Request) (*Response, error) {
	httpResp, err := httpc.PostJSON(ctx, c.http, c.endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("predict: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var body map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: null body", ErrInvalidResponse)
	}

	text, ok := body["text"].(string)
	if !ok {
		return &Response{Body: body}, ErrMissingText
	}
	return &Response{Text: text, Body: body}, nil
}
