// Package asset names and downloads the resources a mirrored page refers to.
//
// It provides:
//   - NameFor: a pure, deterministic URL to filename mapping
//   - Fetcher: a write-once-if-absent downloader backed by the filesystem
//
// There is no in-memory registry of downloaded assets. A target file that
// exists with non-zero size is treated as already localized, so repeated
// runs over the same output directory never re-download anything.
package asset
