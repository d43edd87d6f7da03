// Package log provides slog loggers that mask sensitive values.
//
// The scraper sends user-configured cookies, extra headers and proxy
// credentials. Debug logging of requests would otherwise print them, so
// every logger built here wraps its handler in a SecureHandler.
//
// # Security Features
//
// The SecureHandler masks:
//   - HTTP header attributes (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Keys containing password, secret, token, auth, credential or cookie
//   - Values that look like bearer/basic credentials or JWTs
//   - URLs with embedded user:password, such as proxy addresses
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("request sent",
//	    "cookie", "svSession=abc123", // logged as ***REDACTED***
//	    "url", "https://example.com/",
//	)
package log
