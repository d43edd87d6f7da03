package rewrite

import "fmt"

// ParseError reports a viewer-model script whose content is not valid JSON.
// Worker localization is skipped for that page only.
type ParseError struct {
	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid viewer model JSON: %v", e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
