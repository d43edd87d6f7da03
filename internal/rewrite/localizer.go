package rewrite

import (
	"context"
	"log/slog"

	"golang.org/x/net/html"
)

// Fetcher is the subset of asset.Fetcher used by the rewriters.
type Fetcher interface {
	EnsureLocal(ctx context.Context, url, destPath string) (bool, error)
	FetchText(ctx context.Context, url string) (string, error)
}

// Stats counts what a rewriting pass did to one document.
type Stats struct {
	// Localized is the number of references pointed at a local file.
	Localized int `json:"localized"`

	// Failed is the number of references left remote because the download
	// failed.
	Failed int `json:"failed"`

	// KeptRemote is the number of runtime bundle references deliberately
	// left remote.
	KeptRemote int `json:"kept_remote"`

	// Stylesheets is the number of stylesheets rewritten and saved.
	Stylesheets int `json:"stylesheets"`

	// Anchors is the number of internal anchors mapped to route folders.
	Anchors int `json:"anchors"`

	// WorkerRewritten reports whether the worker bootstrap was localized.
	WorkerRewritten bool `json:"worker_rewritten"`
}

// Option configures the rewriters.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets the logger for per-reference diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// localizer downloads one absolute URL into the assets directory and
// returns its path relative to the referencing file.
type localizer struct {
	fetcher Fetcher
	layout  Layout
	logger  *slog.Logger
}

// localize returns the relative reference for absURL as seen from fromFile.
func (l *localizer) localize(ctx context.Context, absURL, fromFile string) (string, error) {
	dest := l.layout.AssetPath(absURL)
	if _, err := l.fetcher.EnsureLocal(ctx, absURL, dest); err != nil {
		return "", err
	}
	return relativePath(fromFile, dest)
}

// replaceTextContent replaces the children of n with a single text node.
// The text is stored raw, so script and style bodies render without
// entity escaping.
func replaceTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
