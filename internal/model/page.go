package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// IndexFile is the file served for a route folder.
const IndexFile = "index.html"

// PageTask is one page to mirror. It is created once per discovered URL and
// never modified.
type PageTask struct {
	// SourceURL is the absolute URL of the page.
	SourceURL string `json:"source_url"`

	// Route is the URL path the page will be served at, always ending in "/".
	Route string `json:"route"`

	// OutputPath is the file the rendered page is written to.
	OutputPath string `json:"output_path"`
}

// NewPageTask creates the task for sourceURL inside outDir.
func NewPageTask(sourceURL, outDir string) (PageTask, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return PageTask{}, fmt.Errorf("invalid page URL %q: %w", sourceURL, err)
	}
	file := RouteFile(parsed.Path)
	route := "/" + strings.TrimSuffix(file, IndexFile)
	return PageTask{
		SourceURL:  sourceURL,
		Route:      route,
		OutputPath: filepath.Join(outDir, filepath.FromSlash(file)),
	}, nil
}

// RouteFile maps a decoded URL path to its slash-separated output file using
// the directory-per-route convention:
//
//	/       -> index.html
//	/news   -> news/index.html
//	/a/b/   -> a/b/index.html
//
// The path is cleaned so it can never leave the output directory, and
// NFC-normalized so that equivalent Unicode spellings share one folder.
func RouteFile(urlPath string) string {
	cleaned := path.Clean("/" + norm.NFC.String(urlPath))
	slug := strings.Trim(cleaned, "/")
	if slug == "" {
		return IndexFile
	}
	return slug + "/" + IndexFile
}

// PageStatus is the outcome of mirroring one page.
type PageStatus string

const (
	// PageStatusWritten means the page was rewritten and saved.
	PageStatusWritten PageStatus = "written"

	// PageStatusFailed means the page could not be fetched or saved.
	PageStatusFailed PageStatus = "failed"

	// PageStatusSkipped means the run stopped before reaching the page.
	PageStatusSkipped PageStatus = "skipped"
)

// PageResult records what happened to one page.
type PageResult struct {
	// URL is the page's source URL.
	URL string `json:"url"`

	// OutputPath is where the page was (or would have been) written.
	OutputPath string `json:"output_path"`

	// Status is the page outcome.
	Status PageStatus `json:"status"`

	// Localized is the number of references rewritten to local files.
	Localized int `json:"localized"`

	// AssetFailures is the number of references left remote after a
	// failed download.
	AssetFailures int `json:"asset_failures"`

	// KeptRemote is the number of runtime bundles deliberately left remote.
	KeptRemote int `json:"kept_remote"`

	// Stylesheets is the number of stylesheets rewritten and saved.
	Stylesheets int `json:"stylesheets"`

	// Anchors is the number of internal anchors mapped to route folders.
	Anchors int `json:"anchors"`

	// WorkerRewritten reports whether the worker bootstrap was localized.
	WorkerRewritten bool `json:"worker_rewritten"`

	// Hash is the SHA-256 of the written HTML, empty if nothing was written.
	Hash string `json:"hash,omitempty"`

	// Error holds the failure message for failed pages.
	Error string `json:"error,omitempty"`

	// Duration is how long the page took.
	Duration time.Duration `json:"duration"`
}

// ComputeHash sets Hash from the written content.
// Empty content yields an empty hash.
func (p *PageResult) ComputeHash(content []byte) {
	if len(content) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(content)
	p.Hash = hex.EncodeToString(sum[:])
}
