package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and Config.ValidateStrip.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() while the messages stay readable on the command line.
var (
	// ErrNoBaseURL is returned when --base-url is missing.
	ErrNoBaseURL = errors.New("no base URL specified: use --base-url")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between page fetches.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidReportFormat is returned for an unknown --report value.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidJobs is returned when the strip concurrency is not positive.
	ErrInvalidJobs = errors.New("invalid jobs: must be positive")
)
