package prometheus

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by every backend-touching call when no
// Prometheus URL has been configured.
var ErrNotConfigured = errors.New("Prometheus URL is not configured, set PROMETHEUS_URL")

// TransportError reports a failed HTTP exchange with the backend: either the
// request never completed or the response status was outside the 2xx range.
type TransportError struct {
	StatusCode int
	Endpoint   string
	URL        string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("request to %s returned HTTP %d (%s)", e.Endpoint, e.StatusCode, e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a backend response body that could not be decoded.
type DecodeError struct {
	Endpoint string
	URL      string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BackendError reports a well-formed envelope whose status is not "success".
type BackendError struct {
	Endpoint  string
	ErrorType string
	Message   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("Prometheus API error on %s: %s", e.Endpoint, e.Message)
}

// ValidationError reports a missing or invalid tool argument. It is raised
// before any network call is made.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s parameter: %s", e.Param, e.Reason)
}
