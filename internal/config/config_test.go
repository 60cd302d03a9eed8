package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Session.FollowUpDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms follow-up delay, got %v", cfg.Session.FollowUpDelay)
	}
	if cfg.Session.LogCapacity != 50 {
		t.Errorf("expected log capacity 50, got %d", cfg.Session.LogCapacity)
	}
	if cfg.Session.CancelOnReset {
		t.Error("cancel on reset should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvPredictionEndpoint, "")
	t.Setenv(EnvDashboardPort, "")
	t.Setenv(EnvLogLevel, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "toolcall.yaml")
	data := []byte(`
log:
  level: debug
prediction:
  endpoint: https://flow.example.com/api/v1/prediction/abc
  timeout: 5s
session:
  follow_up_delay: 250ms
  log_capacity: 20
  cancel_on_reset: true
dashboard:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Log.Level)
	}
	if cfg.Prediction.Endpoint != "https://flow.example.com/api/v1/prediction/abc" {
		t.Errorf("unexpected endpoint %s", cfg.Prediction.Endpoint)
	}
	if cfg.Prediction.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Prediction.Timeout)
	}
	if cfg.Session.FollowUpDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Session.FollowUpDelay)
	}
	if cfg.Session.LogCapacity != 20 {
		t.Errorf("expected 20, got %d", cfg.Session.LogCapacity)
	}
	if !cfg.Session.CancelOnReset {
		t.Error("cancel on reset not loaded")
	}
	if cfg.Dashboard.Enabled {
		t.Error("dashboard should be disabled")
	}
	// Untouched sections keep their defaults.
	if cfg.Realtime.Model != DefaultRealtimeModel {
		t.Errorf("expected default model, got %s", cfg.Realtime.Model)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvPredictionEndpoint, "http://localhost:3000/api/v1/prediction/x")
	t.Setenv(EnvDashboardPort, "9999")
	t.Setenv(EnvRealtimeModel, "gpt-realtime")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Realtime.APIKey != "sk-test" {
		t.Error("api key not read from env")
	}
	if cfg.Prediction.Endpoint != "http://localhost:3000/api/v1/prediction/x" {
		t.Errorf("endpoint not overridden: %s", cfg.Prediction.Endpoint)
	}
	if cfg.Dashboard.Port != "9999" {
		t.Errorf("port not overridden: %s", cfg.Dashboard.Port)
	}
	if got := cfg.RealtimeDialURL(); got != DefaultRealtimeURL+"?model=gpt-realtime" {
		t.Errorf("unexpected dial url %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero capacity", func(c *Config) { c.Session.LogCapacity = 0 }, true},
		{"negative delay", func(c *Config) { c.Session.FollowUpDelay = -time.Second }, true},
		{"dashboard without port", func(c *Config) { c.Dashboard.Port = "" }, true},
		{"disabled dashboard without port", func(c *Config) {
			c.Dashboard.Enabled = false
			c.Dashboard.Port = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRealtime(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateRealtime(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.Realtime.APIKey = "sk-test"
	if err := cfg.ValidateRealtime(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
