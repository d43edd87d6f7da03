package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProxy is returned when the proxy address cannot be parsed or
	// uses an unsupported scheme.
	ErrInvalidProxy = errors.New("invalid proxy: expected socks5://host:port, http://host:port, or host:port")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code returned by the server.
	StatusCode int

	// Status is the status line text, e.g. "404 Not Found".
	Status string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s for %s", e.Status, e.URL)
}
