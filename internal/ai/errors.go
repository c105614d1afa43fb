package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-200 reply from a provider's HTTP API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// InvalidResponseError means the model replied with content that is not
// JSON or does not match the expected schema.
type InvalidResponseError struct {
	Schema  string
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Schema, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }
