package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/staticmirror/internal/report"
	"github.com/nao1215/staticmirror/internal/sitemap"
	"github.com/nao1215/staticmirror/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "staticmirror"

	// DefaultOutDir is where scraped pages and assets are written.
	DefaultOutDir = "site"

	// DefaultSitemapPath is the sitemap location relative to the base URL.
	DefaultSitemapPath = sitemap.DefaultPath

	// DefaultCrawlDelay is the pause between page fetches.
	// Wix origins start returning 429 when pages are requested back to back.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = transport.DefaultTimeout

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = transport.DefaultUserAgent

	// DefaultMaxBodySize limits the response body size read per request.
	// Hero videos and large images are the usual reason to raise it.
	DefaultMaxBodySize = transport.DefaultMaxBodySize

	// DefaultReportFormat is the report printed after a scrape.
	DefaultReportFormat = report.FormatText

	// DefaultStripRoot is the directory the strip command walks.
	DefaultStripRoot = DefaultOutDir

	// DefaultJobs is the number of files stripped concurrently.
	DefaultJobs = 1
)

// Config holds all configuration options for staticmirror.
// It is populated from defaults, then the config file, then CLI flags, and
// passed down explicitly rather than read from global state.
//
// Design decision: We use a single flat struct for both commands. scrape and
// strip share the output directory and the number of options is small.
type Config struct {
	// BaseURL is the site to mirror, without a trailing slash.
	BaseURL string

	// OutDir is the output root directory.
	OutDir string

	// SitemapPath is the sitemap location relative to BaseURL.
	SitemapPath string

	// CrawlDelay is the pause between page fetches. Zero disables it.
	CrawlDelay time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Zero uses the default.
	MaxBodySize int64

	// Proxy routes requests through a SOCKS5 or HTTP proxy when set.
	Proxy string

	// Cookie is sent with every request when set.
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// IgnorePatterns are doublestar globs matched against sitemap URL paths.
	// Matching pages are not mirrored.
	IgnorePatterns []string

	// KeepGoing continues the run after a page fails instead of aborting.
	KeepGoing bool

	// Verbose enables debug logging and lists every page in the report.
	Verbose bool

	// ReportFormat is one of text, json or markdown.
	ReportFormat string

	// ReportFile receives the report instead of stdout when set.
	ReportFile string

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/staticmirror on Linux).
	DBDir string

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// StripRoot is the directory walked by the strip command.
	StripRoot string

	// InPlace makes strip overwrite files. Otherwise it only reports.
	InPlace bool

	// Jobs is the number of files stripped concurrently.
	Jobs int

	// StripExcludes are doublestar globs of files strip leaves alone.
	StripExcludes []string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (delay, timeout, paths).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		OutDir:       DefaultOutDir,
		SitemapPath:  DefaultSitemapPath,
		CrawlDelay:   DefaultCrawlDelay,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		ReportFormat: DefaultReportFormat,
		SaveHistory:  true,
		DBDir:        XDGDataDir(),
		StripRoot:    DefaultStripRoot,
		Jobs:         DefaultJobs,
	}
}

// XDGDataDir returns the XDG data directory for staticmirror.
// On Linux: ~/.local/share/staticmirror
// On macOS: ~/Library/Application Support/staticmirror
// On Windows: %LOCALAPPDATA%\staticmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for staticmirror.
// On Linux: ~/.config/staticmirror
// On macOS: ~/Library/Application Support/staticmirror
// On Windows: %APPDATA%\staticmirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplySite overlays the non-zero fields of a site entry.
// Headers are merged key by key.
func (c *Config) ApplySite(site SiteConfig) {
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(site.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if site.Delay != nil {
		c.CrawlDelay = *site.Delay
	}
	if site.Timeout != nil {
		c.Timeout = *site.Timeout
	}
	if site.Sitemap != "" {
		c.SitemapPath = site.Sitemap
	}
	if site.Proxy != "" {
		c.Proxy = site.Proxy
	}
	if site.MaxBodySize > 0 {
		c.MaxBodySize = site.MaxBodySize
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.StripExcludes) > 0 {
		c.StripExcludes = site.StripExcludes
	}
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// Validate checks the options used by the scrape command.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast before any request is sent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Zero means no delay; negative durations are a typo.
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.ReportFormat {
	case report.FormatText, report.FormatJSON, report.FormatMarkdown:
	default:
		return ErrInvalidReportFormat
	}

	return nil
}

// ValidateStrip checks the options used by the strip command.
func (c *Config) ValidateStrip() error {
	if c.Jobs <= 0 {
		return ErrInvalidJobs
	}
	return nil
}
