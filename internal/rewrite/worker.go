package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/staticmirror/internal/urlutil"
)

const (
	// viewerModelSelector locates the script holding the viewer model JSON.
	viewerModelSelector = "script#wix-viewer-model"

	// workerMarker identifies string values that reference the worker bundle.
	workerMarker = "clientWorker."
)

// WorkerLocalizer makes the platform's client worker bundle same-origin.
//
// Browsers only start a Worker from a same-origin script, and the runtime may
// load it from a blob: wrapper through importScripts, where relative URLs
// do not resolve. The localized reference is therefore always a
// site-root-absolute path such as /assets/wix-workers/<name>.
type WorkerLocalizer struct {
	fetcher Fetcher
	layout  Layout
	settings
}

// NewWorkerLocalizer creates a WorkerLocalizer.
func NewWorkerLocalizer(fetcher Fetcher, layout Layout, opts ...Option) *WorkerLocalizer {
	return &WorkerLocalizer{fetcher: fetcher, layout: layout, settings: newSettings(opts)}
}

// Rewrite localizes worker bundle references inside the viewer model script
// of the document rooted at root. It reports whether the script was changed.
// A malformed model yields a *ParseError and leaves the document untouched.
func (w *WorkerLocalizer) Rewrite(ctx context.Context, root *html.Node) (bool, error) {
	script := goquery.NewDocumentFromNode(root).Find(viewerModelSelector).First()
	if script.Length() == 0 {
		return false, nil
	}
	text := script.Text()
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var model any
	if err := dec.Decode(&model); err != nil {
		return false, &ParseError{Err: err}
	}

	externalBase := externalBaseURL(model)
	changed := false
	model = w.walk(ctx, model, externalBase, &changed)
	if !changed {
		return false, nil
	}

	// The encoder keeps escaping <, > and & so the payload can never close
	// its own <script> element.
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(model); err != nil {
		return false, &ParseError{Err: err}
	}
	replaceTextContent(script.Nodes[0], strings.TrimSuffix(buf.String(), "\n"))
	return true, nil
}

// walk visits every value of the decoded model and rewrites strings.
func (w *WorkerLocalizer) walk(ctx context.Context, node any, externalBase string, changed *bool) any {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			v[key] = w.walk(ctx, child, externalBase, changed)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = w.walk(ctx, child, externalBase, changed)
		}
		return v
	case string:
		return w.rewriteValue(ctx, v, externalBase, changed)
	default:
		return node
	}
}

// rewriteValue localizes a single worker reference. Values that are not
// worker references, or that cannot be made absolute or downloaded, are
// returned unchanged.
func (w *WorkerLocalizer) rewriteValue(ctx context.Context, value, externalBase string, changed *bool) string {
	if !strings.Contains(value, workerMarker) {
		return value
	}

	absURL := urlutil.StripFragment(value)
	if !urlutil.IsFetchable(absURL) {
		if !strings.HasPrefix(absURL, "/") || externalBase == "" {
			return value
		}
		absURL = urlutil.Resolve(strings.TrimRight(externalBase, "/")+"/", strings.TrimLeft(absURL, "/"))
	}

	dest := w.layout.WorkerPath(absURL)
	if _, err := w.fetcher.EnsureLocal(ctx, absURL, dest); err != nil {
		w.logger.Debug("worker bundle not localized", "url", absURL, "error", err)
		return value
	}

	rootPath, err := w.layout.RootPath(dest)
	if err != nil {
		w.logger.Debug("worker bundle outside output root", "path", dest, "error", err)
		return value
	}
	*changed = true
	return rootPath
}

// externalBaseURL returns site.externalBaseUrl from the model, or "".
func externalBaseURL(model any) string {
	root, ok := model.(map[string]any)
	if !ok {
		return ""
	}
	site, ok := root["site"].(map[string]any)
	if !ok {
		return ""
	}
	base, _ := site["externalBaseUrl"].(string)
	return base
}
