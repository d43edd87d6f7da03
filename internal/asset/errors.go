package asset

import "fmt"

// FetchError is returned when a resource could not be retrieved.
// It carries the URL so that callers can log the offending reference.
type FetchError struct {
	// URL is the absolute URL that failed.
	URL string

	// Err is the underlying transport, status, or filesystem error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error so errors.As can reach a
// transport.StatusError.
func (e *FetchError) Unwrap() error {
	return e.Err
}
