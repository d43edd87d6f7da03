package sitemap

import "errors"

// ErrEmptyBaseURL is returned when discovery is started without a base URL.
var ErrEmptyBaseURL = errors.New("base URL is empty")

// ErrInvalidIgnorePattern is returned when an ignore glob cannot be parsed.
var ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")
