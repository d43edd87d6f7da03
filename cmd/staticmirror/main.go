// Package main provides the entry point for the staticmirror CLI.
//
// staticmirror turns a published Wix site into a self-contained static
// mirror. scrape downloads every sitemap page with its assets and rewrites
// references to local paths; strip removes the leftover Wix runtime so the
// mirror can be served by any static host.
//
// Usage:
//
//	staticmirror scrape --base-url https://www.example.com --out-dir site
//	staticmirror strip --root site --in-place
//
// See --help for all available options.
package main

func main() {
	Execute()
}
