// Package config holds the options of the scrape and strip commands and
// loads per-site settings from .staticmirror.yaml.
//
// Values are layered: NewConfig defaults, then the file's defaults and the
// entry for the base URL's host (ApplySite), then flags given on the
// command line.
package config
