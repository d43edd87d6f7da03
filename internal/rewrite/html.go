package rewrite

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/staticmirror/internal/asset"
	"github.com/nao1215/staticmirror/internal/urlutil"
)

// attrTarget is an element selector and the attribute holding its reference.
type attrTarget struct {
	selector string
	attr     string
}

// resourceTargets are localized in this order after the stylesheets.
var resourceTargets = []attrTarget{
	{selector: "script[src]", attr: "src"},
	{selector: "img[src]", attr: "src"},
	{selector: "source[src]", attr: "src"},
}

// HTMLRewriter localizes every resource referenced by a page.
type HTMLRewriter struct {
	localizer
	css    *CSSRewriter
	worker *WorkerLocalizer
}

// NewHTMLRewriter creates an HTMLRewriter together with the CSS rewriter and
// worker localizer it drives.
func NewHTMLRewriter(fetcher Fetcher, layout Layout, opts ...Option) *HTMLRewriter {
	s := newSettings(opts)
	return &HTMLRewriter{
		localizer: localizer{fetcher: fetcher, layout: layout, logger: s.logger},
		css:       NewCSSRewriter(fetcher, layout, opts...),
		worker:    NewWorkerLocalizer(fetcher, layout, opts...),
	}
}

// Rewrite mutates the document rooted at root in place.
//
// The order is fixed: stylesheets, scripts, images, media sources, other
// links, inline CSS, <base> removal, internal anchors, and finally the
// worker bootstrap, which must see the final asset placement.
func (r *HTMLRewriter) Rewrite(ctx context.Context, root *html.Node, pageURL, outHTMLPath string) Stats {
	var stats Stats
	doc := goquery.NewDocumentFromNode(root)

	r.localizeStylesheets(ctx, doc, pageURL, outHTMLPath, &stats)

	for _, target := range resourceTargets {
		doc.Find(target.selector).Each(func(_ int, s *goquery.Selection) {
			r.localizeAttr(ctx, s, target.attr, pageURL, outHTMLPath, &stats)
		})
	}

	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if rel, _ := s.Attr("rel"); strings.Contains(strings.ToLower(rel), "stylesheet") {
			return
		}
		r.localizeAttr(ctx, s, "href", pageURL, outHTMLPath, &stats)
	})

	r.localizeInlineCSS(ctx, doc, pageURL, outHTMLPath, &stats)

	doc.Find("head base").Remove()

	stats.Anchors = RewriteAnchors(root, pageURL)

	rewritten, err := r.worker.Rewrite(ctx, root)
	if err != nil {
		r.logger.Debug("worker localization skipped", "page", pageURL, "error", err)
	}
	stats.WorkerRewritten = rewritten

	return stats
}

// localizeStylesheets fetches each stylesheet, rewrites its url(...) tokens,
// saves it under the assets directory, and points the link at the copy.
// On any failure the original href is kept.
func (r *HTMLRewriter) localizeStylesheets(ctx context.Context, doc *goquery.Document, pageURL, outHTMLPath string, stats *Stats) {
	doc.Find("link[rel~='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		cssURL := urlutil.StripFragment(urlutil.Resolve(pageURL, href))
		if !urlutil.IsFetchable(cssURL) {
			return
		}

		outCSSPath := r.layout.AssetPath(cssURL)
		cssText, err := r.fetcher.FetchText(ctx, cssURL)
		if err != nil {
			stats.Failed++
			r.logger.Debug("stylesheet not localized", "url", cssURL, "error", err)
			return
		}

		cssText = r.css.rewrite(ctx, cssText, cssURL, outCSSPath, stats)
		if err := asset.WriteFile(outCSSPath, []byte(cssText)); err != nil {
			stats.Failed++
			r.logger.Debug("stylesheet not saved", "url", cssURL, "error", err)
			return
		}

		rel, err := relativePath(outHTMLPath, outCSSPath)
		if err != nil {
			stats.Failed++
			return
		}
		s.SetAttr("href", rel)
		stats.Stylesheets++
	})
}

// localizeAttr localizes the reference held in attr of the selected element.
func (r *HTMLRewriter) localizeAttr(ctx context.Context, s *goquery.Selection, attr, pageURL, outHTMLPath string, stats *Stats) {
	value, ok := s.Attr(attr)
	if !ok {
		return
	}
	raw := strings.TrimSpace(value)
	if raw == "" || urlutil.IsSkippableRef(raw) {
		return
	}
	raw = RepairRegistryParam(raw)

	absURL := urlutil.StripFragment(urlutil.Resolve(pageURL, raw))
	if !urlutil.IsFetchable(absURL) {
		return
	}

	if IsRuntimeBundle(absURL) {
		s.SetAttr(attr, absURL)
		stats.KeptRemote++
		return
	}

	rel, err := r.localize(ctx, absURL, outHTMLPath)
	if err != nil {
		stats.Failed++
		r.logger.Debug("asset not localized", "url", absURL, "error", err)
		return
	}
	s.SetAttr(attr, rel)
	stats.Localized++
}

// localizeInlineCSS runs the CSS rewriter over <style> elements and style
// attributes. References are relative to the page itself.
func (r *HTMLRewriter) localizeInlineCSS(ctx context.Context, doc *goquery.Document, pageURL, outHTMLPath string, stats *Stats) {
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !cssURLPattern.MatchString(text) {
			return
		}
		if rewritten := r.css.rewrite(ctx, text, pageURL, outHTMLPath, stats); rewritten != text {
			replaceTextContent(s.Nodes[0], rewritten)
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !cssURLPattern.MatchString(style) {
			return
		}
		if rewritten := r.css.rewrite(ctx, style, pageURL, outHTMLPath, stats); rewritten != style {
			s.SetAttr("style", rewritten)
		}
	})
}
