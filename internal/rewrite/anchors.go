package rewrite

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/staticmirror/internal/urlutil"
)

// RewriteAnchors maps every same-host anchor in the document rooted at root
// to the directory-per-route convention and returns how many were changed.
func RewriteAnchors(root *html.Node, pageURL string) int {
	count := 0
	goquery.NewDocumentFromNode(root).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if rewritten, ok := RouteHref(pageURL, href); ok && rewritten != href {
			s.SetAttr("href", rewritten)
			count++
		}
	})
	return count
}

// RouteHref returns the route-folder form of href as seen from pageURL.
//
//	https://host/          -> /
//	https://host/news?x=1#y -> /news/?x=1#y
//
// ok is false when href points to another host, is a fragment, mailto or
// tel link, or cannot be parsed.
func RouteHref(pageURL, href string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || urlutil.IsSkippableRef(trimmed) {
		return "", false
	}

	absURL := urlutil.Resolve(pageURL, trimmed)
	if !urlutil.SameHost(absURL, pageURL) {
		return "", false
	}
	parsed, err := url.Parse(absURL)
	if err != nil {
		return "", false
	}

	var suffix string
	if parsed.RawQuery != "" {
		suffix += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		suffix += "#" + parsed.EscapedFragment()
	}

	path := parsed.EscapedPath()
	if path == "" || path == "/" {
		return "/" + suffix, true
	}
	path = strings.TrimRight(path, "/") + "/"
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path + suffix, true
}
