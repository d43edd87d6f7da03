package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/nao1215/staticmirror/internal/urlutil"
)

// DefaultPath is the sitemap location used when none is configured.
const DefaultPath = "/sitemap.xml"

// pagesSitemapSuffix identifies the Wix child sitemap holding static pages.
const pagesSitemapSuffix = "pages-sitemap.xml"

// Fetcher retrieves a document body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Discoverer turns a sitemap into page URLs.
type Discoverer struct {
	fetcher        Fetcher
	ignorePatterns []string
	logger         *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithIgnorePatterns drops pages whose URL path matches any of the
// doublestar globs (e.g. "/blog/**", "/members-*").
func WithIgnorePatterns(patterns []string) Option {
	return func(d *Discoverer) {
		d.ignorePatterns = patterns
	}
}

// WithLogger sets the logger for discovery events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// NewDiscoverer creates a Discoverer that fetches through fetcher.
func NewDiscoverer(fetcher Fetcher, opts ...Option) *Discoverer {
	d := &Discoverer{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the page URLs listed by the sitemap at sitemapPath,
// relative to baseURL, in document order.
func (d *Discoverer) Discover(ctx context.Context, baseURL, sitemapPath string) ([]string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	for _, pattern := range d.ignorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIgnorePattern, pattern)
		}
	}

	sitemapURL := URL(base, sitemapPath)
	locs, err := d.fetchLocs(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	if len(locs) == 1 && strings.HasSuffix(locs[0], pagesSitemapSuffix) {
		d.logger.Debug("following pages sitemap", "url", locs[0])
		locs, err = d.fetchLocs(ctx, locs[0])
		if err != nil {
			return nil, err
		}
	}

	pages := d.filter(base, locs)
	d.logger.Debug("sitemap discovered", "sitemap", sitemapURL, "locs", len(locs), "pages", len(pages))
	return pages, nil
}

// URL joins a sitemap path onto the base URL. Absolute sitemap URLs are
// returned as is.
func URL(baseURL, sitemapPath string) string {
	if sitemapPath == "" {
		sitemapPath = DefaultPath
	}
	base := strings.TrimRight(baseURL, "/") + "/"
	return urlutil.Resolve(base, strings.TrimLeft(sitemapPath, "/"))
}

// fetchLocs fetches one sitemap document and returns its <loc> values.
func (d *Discoverer) fetchLocs(ctx context.Context, sitemapURL string) ([]string, error) {
	body, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap %s: %w", sitemapURL, err)
	}
	locs, err := ParseLocs(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sitemap %s: %w", sitemapURL, err)
	}
	return locs, nil
}

// ParseLocs extracts the trimmed, non-empty <loc> values of a sitemap or
// sitemap index document.
func ParseLocs(data []byte) ([]string, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	nodes, err := xmlquery.QueryAll(doc, "//loc")
	if err != nil {
		return nil, err
	}

	locs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func (d *Discoverer) filter(base string, locs []string) []string {
	seen := make(map[string]bool, len(locs))
	pages := make([]string, 0, len(locs))
	for _, loc := range locs {
		if strings.HasSuffix(loc, ".xml") || !strings.HasPrefix(loc, base) {
			continue
		}
		if seen[loc] {
			continue
		}
		seen[loc] = true
		if d.ignored(loc) {
			d.logger.Debug("page ignored by pattern", "url", loc)
			continue
		}
		pages = append(pages, loc)
	}
	return pages
}

func (d *Discoverer) ignored(pageURL string) bool {
	if len(d.ignorePatterns) == 0 {
		return false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	for _, pattern := range d.ignorePatterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
