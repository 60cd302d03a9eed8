// Package config provides configuration loading for go-toolcall commands.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultRealtimeURL    = "wss://api.openai.com/v1/realtime"
	DefaultRealtimeModel  = "gpt-4o-realtime-preview-2024-12-17"
	DefaultDashboardPort  = "8181"
	DefaultFollowUpDelay  = 500 * time.Millisecond
	DefaultLogCapacity    = 50
	DefaultPredictTimeout = 30 * time.Second
)

// Environment variable names.
const (
	EnvAPIKey             = "OPENAI_API_KEY"
	EnvRealtimeURL        = "REALTIME_URL"
	EnvRealtimeModel      = "REALTIME_MODEL"
	EnvPredictionEndpoint = "PREDICTION_ENDPOINT"
	EnvDashboardPort      = "DASHBOARD_PORT"
	EnvLogLevel           = "LOG_LEVEL"
)

// ErrMissingAPIKey is returned by ValidateRealtime when no key is configured.
var ErrMissingAPIKey = errors.New("config: " + EnvAPIKey + " is required")

// Config is the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Prediction PredictionConfig `yaml:"prediction"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Session    SessionConfig    `yaml:"session"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// RealtimeConfig describes the realtime session endpoint.
type RealtimeConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`

	// APIKey is never read from the file.
	APIKey string `yaml:"-"`
}

// PredictionConfig describes the remote prediction service.
type PredictionConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DashboardConfig controls the web dashboard.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// SessionConfig tunes the session controller.
type SessionConfig struct {
	FollowUpDelay time.Duration `yaml:"follow_up_delay"`
	LogCapacity   int           `yaml:"log_capacity"`
	CancelOnReset bool          `yaml:"cancel_on_reset"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Realtime: RealtimeConfig{
			URL:   DefaultRealtimeURL,
			Model: DefaultRealtimeModel,
		},
		Prediction: PredictionConfig{
			Timeout: DefaultPredictTimeout,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Port:    DefaultDashboardPort,
		},
		Session: SessionConfig{
			FollowUpDelay: DefaultFollowUpDelay,
			LogCapacity:   DefaultLogCapacity,
		},
	}
}

// Load reads configuration from path (if non-empty) and applies environment
// overrides. A missing file at path is an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables when set.
func (c *Config) ApplyEnv() {
	c.Realtime.APIKey = os.Getenv(EnvAPIKey)
	if v := os.Getenv(EnvRealtimeURL); v != "" {
		c.Realtime.URL = v
	}
	if v := os.Getenv(EnvRealtimeModel); v != "" {
		c.Realtime.Model = v
	}
	if v := os.Getenv(EnvPredictionEndpoint); v != "" {
		c.Prediction.Endpoint = v
	}
	if v := os.Getenv(EnvDashboardPort); v != "" {
		c.Dashboard.Port = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Session.LogCapacity <= 0 {
		return fmt.Errorf("config: session.log_capacity must be positive, got %d", c.Session.LogCapacity)
	}
	if c.Session.FollowUpDelay < 0 {
		return fmt.Errorf("config: session.follow_up_delay must not be negative")
	}
	if c.Prediction.Timeout < 0 {
		return fmt.Errorf("config: prediction.timeout must not be negative")
	}
	if c.Dashboard.Enabled && c.Dashboard.Port == "" {
		return fmt.Errorf("config: dashboard.port is required when the dashboard is enabled")
	}
	return nil
}

// ValidateRealtime checks the fields needed to open a realtime session.
func (c *Config) ValidateRealtime() error {
	if c.Realtime.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Realtime.URL == "" {
		return fmt.Errorf("config: realtime.url is required")
	}
	return nil
}

// RealtimeDialURL returns the websocket URL including the model query.
func (c *Config) RealtimeDialURL() string {
	if c.Realtime.Model == "" {
		return c.Realtime.URL
	}
	return fmt.Sprintf("%s?model=%s", c.Realtime.URL, c.Realtime.Model)
}
