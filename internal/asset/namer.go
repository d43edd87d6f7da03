package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// unsafeNameChars matches runs of characters that are not allowed in a
// local asset filename.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const (
	// urlHashLength is the number of hex digits used when the URL path has
	// no usable filename.
	urlHashLength = 16

	// queryHashLength is the number of hex digits appended for a query string.
	queryHashLength = 8
)

// NameFor returns a stable, filesystem-safe filename for an absolute URL.
//
// If the last path segment contains a dot it is kept (sanitized to
// [A-Za-z0-9._-]); otherwise the name is "asset_" followed by a hash of the
// full URL. When the URL carries a query string, a short hash of the query is
// inserted before the extension, so URLs that differ only by query never
// collide while the extension ("*.js", "*.css") is preserved.
func NameFor(absoluteURL string) string {
	var (
		segment  string
		rawQuery string
	)
	if parsed, err := url.Parse(absoluteURL); err == nil {
		escaped := parsed.EscapedPath()
		if !strings.HasSuffix(escaped, "/") {
			segment = path.Base(escaped)
		}
		rawQuery = parsed.RawQuery
	}

	var name string
	if segment != "" && segment != "/" && segment != "." && strings.Contains(segment, ".") {
		name = unsafeNameChars.ReplaceAllString(segment, "_")
	} else {
		name = "asset_" + hashHex(absoluteURL, urlHashLength)
	}

	if rawQuery != "" {
		root, ext := splitExt(name)
		name = root + "_" + hashHex(rawQuery, queryHashLength) + ext
	}
	return name
}

// splitExt splits name into root and extension at the last dot.
// Leading dots do not start an extension, so ".htaccess" has none.
func splitExt(name string) (string, string) {
	trimmed := strings.TrimLeft(name, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return name, ""
	}
	i += len(name) - len(trimmed)
	return name[:i], name[i:]
}

// hashHex returns the first n hex digits of the SHA-256 of s.
func hashHex(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
