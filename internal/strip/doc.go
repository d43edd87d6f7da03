// Package strip removes the platform runtime from already mirrored HTML.
//
// The mirrored pages are server-rendered, so the static snapshot needs none
// of the scripts, preload hints, or vendor stylesheets that bootstrap the
// client runtime. Strip applies a fixed set of node-level rules to one
// document; Walker applies Strip to every HTML file under a directory.
//
// Stripping is idempotent: running it over its own output changes nothing.
package strip
