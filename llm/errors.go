package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication is returned when the service rejects the credentials (401).
	ErrAuthentication = errors.New("authentication failed")

	// ErrThrottled is returned for rate-limit (429) and service-unavailable (503) responses.
	ErrThrottled = errors.New("rate limited or service unavailable")

	// ErrInvalidResponse is returned when a response carries no generated text.
	ErrInvalidResponse = errors.New("invalid response: no message content")
)

// StatusError is a provider failure carrying the HTTP status of the response.
// It unwraps to the classified sentinel (if any) and to the SDK error.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying SDK error.
func (e *StatusError) Unwrap() []error {
	if kind := kindForStatus(e.StatusCode); kind != nil {
		return []error{kind, e.Err}
	}
	return []error{e.Err}
}

// kindForStatus maps an HTTP status code onto an error kind.
func kindForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return ErrThrottled
	default:
		return nil
	}
}
