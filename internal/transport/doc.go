// Package transport implements the HTTP client used to download pages,
// sitemaps, and assets.
//
// The client sends a desktop browser User-Agent, optionally injects a cookie
// and extra headers, can route through a SOCKS5 or HTTP proxy, and decodes
// gzip, deflate, brotli, and zstd response bodies itself. Any non-2xx
// response is reported as a *StatusError.
package transport
