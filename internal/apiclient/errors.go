package apiclient

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork       = errors.New("network error")
	ErrHTTPStatus    = errors.New("http error status")
	ErrMisconfigured = errors.New("api misconfigured")
)

const defaultErrorMessage = "API request failed"

// NetworkError means the transport failed before any response arrived. It is
// never retried.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// HTTPError is a non-2xx JSON response. Error returns the server's message
// field when it sent one.
type HTTPError struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *HTTPError) Error() string { return e.Message }

func (e *HTTPError) Is(target error) bool { return target == ErrHTTPStatus }

// ConfigError is a response that is not JSON. A 2xx HTML page is the usual
// symptom of a base URL pointing at the wrong host.
type ConfigError struct {
	Endpoint    string
	Status      int
	ContentType string
}

func (e *ConfigError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "no content type"
	}
	if e.Status >= 200 && e.Status < 300 {
		return fmt.Sprintf("API returned %s instead of JSON for %s (status %d); the API URL is likely misconfigured",
			ct, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("API request to %s failed with status %d and a non-JSON response (%s)",
		e.Endpoint, e.Status, ct)
}

func (e *ConfigError) Is(target error) bool { return target == ErrMisconfigured }

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Status, true
	}
	return 0, false
}
