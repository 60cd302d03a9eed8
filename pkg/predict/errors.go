package predict

import (
	"errors"
	"fmt"
)

// Sentinel errors for the predict package.
var (
	// ErrMissingEndpoint indicates no prediction endpoint was configured.
	ErrMissingEndpoint = errors.New("predict: endpoint is required")

	// ErrMissingQuestion indicates an empty question.
	ErrMissingQuestion = errors.New("predict: question is required")

	// ErrInvalidResponse indicates the response body was not a JSON object.
	ErrInvalidResponse = errors.New("predict: invalid response body")

	// ErrMissingText indicates the response had no text field.
	ErrMissingText = errors.New("predict: response has no text")
)

// APIError is a non-2xx response from the prediction endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("predict: API error (HTTP %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("predict: API error (HTTP %d)", e.StatusCode)
}

// IsRetryable reports whether a later identical call might succeed.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
