package controller

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/recorder"
)

// Defaults.
const (
	DefaultFollowUpDelay = 500 * time.Millisecond
	DefaultInboxSize     = 256
)

// Follow-up instruction texts.
const (
	// PaletteFollowUp asks for feedback without reading the color codes back.
	PaletteFollowUp = "Ask the user what they think of the color palette you just displayed " +
		"and whether they would like any changes. Do not read out or repeat the color codes."

	// ApologyFollowUp is sent when a remote enquiry fails.
	ApologyFollowUp = "I'm sorry, I encountered an error while processing your request. Please try again."
)

// Config holds controller configuration.
type Config struct {
	// Catalog lists the tools registered with the session.
	Catalog *catalog.Catalog

	// Predictor answers foreign worker enquiries. Without one, enquiries
	// take the failure path.
	Predictor Predictor

	// FollowUpDelay is how long the palette handler waits before sending
	// its follow-up instruction.
	FollowUpDelay time.Duration

	// LogCapacity bounds the diagnostic log.
	LogCapacity int

	// CancelOnReset stops pending timers and in-flight enquiries when the
	// session is deactivated. When false, they complete against whatever
	// session state exists at that time.
	CancelOnReset bool

	// InboxSize is the scheduler queue capacity.
	InboxSize int

	// SendTimeout bounds each outbound client event write.
	SendTimeout time.Duration

	Logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Config)

// WithCatalog sets the tool catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(cfg *Config) {
		cfg.Catalog = c
	}
}

// WithPredictor sets the enquiry backend.
func WithPredictor(p Predictor) Option {
	return func(cfg *Config) {
		cfg.Predictor = p
	}
}

// WithFollowUpDelay sets the palette follow-up delay.
func WithFollowUpDelay(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.FollowUpDelay = d
	}
}

// WithLogCapacity sets the diagnostic log capacity.
func WithLogCapacity(n int) Option {
	return func(cfg *Config) {
		cfg.LogCapacity = n
	}
}

// WithCancelOnReset enables cancellation of pending work on deactivation.
func WithCancelOnReset(enabled bool) Option {
	return func(cfg *Config) {
		cfg.CancelOnReset = enabled
	}
}

// WithInboxSize sets the scheduler queue capacity.
func WithInboxSize(n int) Option {
	return func(cfg *Config) {
		cfg.InboxSize = n
	}
}

// WithSendTimeout bounds outbound writes.
func WithSendTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.SendTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalog:       catalog.Default(),
		FollowUpDelay: DefaultFollowUpDelay,
		LogCapacity:   recorder.DefaultCapacity,
		InboxSize:     DefaultInboxSize,
		SendTimeout:   10 * time.Second,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Catalog == nil {
		return ErrMissingCatalog
	}
	if c.FollowUpDelay < 0 {
		return ErrInvalidConfig
	}
	return nil
}
