package rewrite

import (
	"context"
	"regexp"
	"strings"

	"github.com/nao1215/staticmirror/internal/urlutil"
)

// cssURLPattern matches url(...) tokens. The quote, if any, must be the same
// on both sides; RE2 has no backreferences, so each quoting style is its own
// alternative:
//
//	group 1: double-quoted value
//	group 2: single-quoted value
//	group 3: unquoted value
var cssURLPattern = regexp.MustCompile(`(?i)url\(\s*(?:"([^'")]+)"|'([^'")]+)'|([^'")]+))\s*\)`)

// CSSRewriter rewrites url(...) references in stylesheet text to local
// copies under the assets directory.
type CSSRewriter struct {
	localizer
}

// NewCSSRewriter creates a CSSRewriter.
func NewCSSRewriter(fetcher Fetcher, layout Layout, opts ...Option) *CSSRewriter {
	s := newSettings(opts)
	return &CSSRewriter{localizer: localizer{fetcher: fetcher, layout: layout, logger: s.logger}}
}

// Rewrite returns cssText with every localizable url(...) token replaced by a
// path relative to the directory of outCSSPath. References are resolved
// against cssSourceURL. Tokens that cannot be localized are left untouched.
func (r *CSSRewriter) Rewrite(ctx context.Context, cssText, cssSourceURL, outCSSPath string) string {
	var stats Stats
	return r.rewrite(ctx, cssText, cssSourceURL, outCSSPath, &stats)
}

func (r *CSSRewriter) rewrite(ctx context.Context, cssText, cssSourceURL, outCSSPath string, stats *Stats) string {
	matches := cssURLPattern.FindAllStringSubmatchIndex(cssText, -1)
	if len(matches) == 0 {
		return cssText
	}

	var sb strings.Builder
	sb.Grow(len(cssText))
	last := 0
	for _, m := range matches {
		sb.WriteString(cssText[last:m[0]])
		sb.WriteString(r.rewriteToken(ctx, cssText, m, cssSourceURL, outCSSPath, stats))
		last = m[1]
	}
	sb.WriteString(cssText[last:])
	return sb.String()
}

// rewriteToken returns the replacement for one url(...) match.
func (r *CSSRewriter) rewriteToken(ctx context.Context, cssText string, m []int, cssSourceURL, outCSSPath string, stats *Stats) string {
	original := cssText[m[0]:m[1]]

	var quote, raw string
	switch {
	case m[2] >= 0:
		quote, raw = `"`, cssText[m[2]:m[3]]
	case m[4] >= 0:
		quote, raw = `'`, cssText[m[4]:m[5]]
	default:
		raw = cssText[m[6]:m[7]]
	}

	raw = strings.TrimSpace(raw)
	if urlutil.IsDataURI(raw) {
		return original
	}
	raw = RepairRegistryParam(raw)

	absURL := urlutil.StripFragment(urlutil.Resolve(cssSourceURL, raw))
	if !urlutil.IsFetchable(absURL) {
		return original
	}

	rel, err := r.localize(ctx, absURL, outCSSPath)
	if err != nil {
		stats.Failed++
		r.logger.Debug("css asset not localized", "url", absURL, "error", err)
		return original
	}
	stats.Localized++
	return "url(" + quote + rel + quote + ")"
}
