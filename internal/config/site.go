package config

import (
	"net/url"
	"strings"
	"time"
)

// SiteConfig holds per-site request and filtering settings.
// Zero values mean "not set" and leave the current value alone.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookie is an HTTP cookie sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay overrides the pause between page fetches. "0s" disables it.
	Delay *time.Duration `yaml:"delay,omitempty"`

	// Timeout overrides the per-request timeout.
	Timeout *time.Duration `yaml:"timeout,omitempty"`

	// Sitemap overrides the sitemap path.
	Sitemap string `yaml:"sitemap,omitempty"`

	// Proxy routes requests through a proxy.
	Proxy string `yaml:"proxy,omitempty"`

	// MaxBodySize overrides the response size limit in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// IgnorePatterns are doublestar globs of page paths to skip.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// StripExcludes are doublestar globs of files strip leaves alone.
	StripExcludes []string `yaml:"strip_excludes,omitempty"`
}

// File represents the structure of the .staticmirror.yaml file.
type File struct {
	// Sites maps host names (e.g. "www.example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged settings for a base URL.
// Sites are looked up by host, then by host without a "www." prefix.
func (cf *File) GetSiteConfig(baseURL string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	site, ok := cf.lookup(baseURL)
	if !ok {
		return result
	}

	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if site.Delay != nil {
		result.Delay = site.Delay
	}
	if site.Timeout != nil {
		result.Timeout = site.Timeout
	}
	if site.Sitemap != "" {
		result.Sitemap = site.Sitemap
	}
	if site.Proxy != "" {
		result.Proxy = site.Proxy
	}
	if site.MaxBodySize > 0 {
		result.MaxBodySize = site.MaxBodySize
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.StripExcludes) > 0 {
		result.StripExcludes = site.StripExcludes
	}

	return result
}

func (cf *File) lookup(baseURL string) (SiteConfig, bool) {
	host := HostKey(baseURL)
	if host == "" {
		return SiteConfig{}, false
	}
	if site, ok := cf.Sites[host]; ok {
		return site, true
	}
	if site, ok := cf.Sites[strings.TrimPrefix(host, "www.")]; ok {
		return site, true
	}
	return SiteConfig{}, false
}

// HostKey returns the lower-cased host of a base URL, or "" if it has none.
func HostKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
