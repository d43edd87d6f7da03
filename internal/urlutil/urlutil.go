package urlutil

import (
	"net/url"
	"strings"
)

// Resolve resolves ref against base following RFC 3986.
// Scheme-relative ("//cdn/x.css"), path-relative ("img/a.png") and absolute
// references are all supported. If either input cannot be parsed, ref is
// returned unchanged.
func Resolve(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// StripFragment removes the "#fragment" part of u.
// The query string is left untouched.
func StripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// IsFetchable reports whether u uses the http or https scheme.
func IsFetchable(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// SameHost reports whether a and b share the same host:port.
// Comparison is case-insensitive because host names are.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

// skippablePrefixes are reference prefixes that never point at a
// downloadable resource.
var skippablePrefixes = []string{"data:", "mailto:", "tel:", "#"}

// IsSkippableRef reports whether ref is an inline data URI, a mailto or tel
// link, or a same-document fragment.
func IsSkippableRef(ref string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(ref))
	for _, prefix := range skippablePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// IsDataURI reports whether ref is an inline data: URI.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ref)), "data:")
}
