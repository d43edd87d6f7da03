package strip

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MarkerComment is appended to <head> once a document has been stripped.
const MarkerComment = " Stripped Wix runtime for static hosting "

// DefaultLang is set on <html> when no language is declared.
const DefaultLang = "en"

// structuredDataType is the only script type kept in a stripped document.
const structuredDataType = "application/ld+json"

var (
	// remotePattern matches absolute and scheme-relative URLs.
	remotePattern = regexp.MustCompile(`(?i)^(https?:)?//`)

	// vendorHostPattern matches the platform's asset and runtime hosts.
	vendorHostPattern = regexp.MustCompile(`(?i)(wixstatic\.com|parastorage\.com|wix\.com)`)
)

// runtimeElements are custom elements that only work with the runtime.
// They are unwrapped so their server-rendered children stay in place.
var runtimeElements = []string{
	"wix-dropdown-menu",
	"wix-video",
	"wix-bg-image",
	"wix-iframe",
}

// resourceHintRels are link relations that only matter to the runtime.
var resourceHintRels = map[string]bool{
	"preload":       true,
	"prefetch":      true,
	"modulepreload": true,
}

// removalRule removes every element matched by selector for which match
// returns true.
type removalRule struct {
	name     string
	selector string
	match    func(s *goquery.Selection) bool
}

// removalRules are applied in order. <base> goes first, then the script
// sweep, which keeps structured data only.
var removalRules = []removalRule{
	{name: "base", selector: "base", match: func(*goquery.Selection) bool { return true }},
	{name: "script", selector: "script", match: isRuntimeScript},
	{name: "link", selector: "link", match: isRuntimeLink},
	{name: "style", selector: "style", match: isRuntimeStyle},
}

// isRemote reports whether ref is an absolute or scheme-relative URL.
func isRemote(ref string) bool {
	return ref != "" && remotePattern.MatchString(ref)
}

// isVendor reports whether ref mentions a platform host.
func isVendor(ref string) bool {
	return ref != "" && vendorHostPattern.MatchString(ref)
}

// isRuntimeScript matches every script except structured data.
func isRuntimeScript(s *goquery.Selection) bool {
	scriptType, _ := s.Attr("type")
	return strings.ToLower(strings.TrimSpace(scriptType)) != structuredDataType
}

// isRuntimeLink matches links to remote or vendor resources and resource
// hints of any origin.
func isRuntimeLink(s *goquery.Selection) bool {
	href, _ := s.Attr("href")
	if isRemote(href) || isVendor(href) {
		return true
	}
	rel, _ := s.Attr("rel")
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if resourceHintRels[token] {
			return true
		}
	}
	return false
}

// isRuntimeStyle matches styles loaded from a remote or vendor source and
// inline styles that mention a vendor host. Font declarations are kept.
func isRuntimeStyle(s *goquery.Selection) bool {
	for _, attr := range []string{"data-url", "data-href"} {
		if v, _ := s.Attr(attr); isRemote(v) || isVendor(v) {
			return true
		}
	}
	text := s.Text()
	return vendorHostPattern.MatchString(text) && !strings.Contains(text, "@font-face")
}
