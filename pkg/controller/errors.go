package controller

import "errors"

// Sentinel errors for the controller package.
var (
	// ErrMissingTransport indicates New was called without a transport.
	ErrMissingTransport = errors.New("controller: transport is required")

	// ErrMissingCatalog indicates the config has no tool catalog.
	ErrMissingCatalog = errors.New("controller: catalog is required")

	// ErrInvalidConfig indicates an out-of-range setting.
	ErrInvalidConfig = errors.New("controller: invalid config")

	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("controller: already running")

	// ErrStopped indicates the scheduler has exited.
	ErrStopped = errors.New("controller: stopped")

	// ErrNoPredictor indicates an enquiry arrived with no backend configured.
	ErrNoPredictor = errors.New("controller: no predictor configured")
)
