package geocode

import "fmt"

// ConfigError reports invalid client configuration. It is fatal for the
// client being constructed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("geocode: invalid %s: %s", e.Field, e.Reason)
}

// NetworkError reports a transport failure: connection refused, timeout,
// truncated body.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("geocode: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a non-2xx response or a body that could not be decoded.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("geocode: api error (status %d)", e.Status)
	}
	return fmt.Sprintf("geocode: api error (status %d): %s", e.Status, e.Message)
}
