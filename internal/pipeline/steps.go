package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/nao1215/staticmirror/internal/asset"
	"github.com/nao1215/staticmirror/internal/rewrite"
)

// Step names, in execution order.
const (
	StepFetchPage      = "fetch_page"
	StepParseHTML      = "parse_html"
	StepLocalizeAssets = "localize_assets"
	StepWritePage      = "write_page"
)

// FetchPageStep downloads the page HTML.
type FetchPageStep struct {
	// transport performs the request.
	transport asset.Transport

	// limiter spaces out page fetches. nil means no waiting.
	limiter *rate.Limiter
}

// NewFetchPageStep creates a fetch step. A nil limiter disables waiting.
func NewFetchPageStep(transport asset.Transport, limiter *rate.Limiter) *FetchPageStep {
	return &FetchPageStep{transport: transport, limiter: limiter}
}

// Name returns the step name.
func (s *FetchPageStep) Name() string {
	return StepFetchPage
}

// Do waits for the limiter, then fetches the page. Failures are returned as
// *asset.FetchError.
func (s *FetchPageStep) Do(ctx context.Context, pc *PageContext) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := s.transport.Fetch(ctx, pc.Task.SourceURL)
	if err != nil {
		return &asset.FetchError{URL: pc.Task.SourceURL, Err: err}
	}
	pc.Raw = body
	return nil
}

// ParseHTMLStep decodes the body to UTF-8 and parses it.
type ParseHTMLStep struct{}

// NewParseHTMLStep creates a parse step.
func NewParseHTMLStep() *ParseHTMLStep {
	return &ParseHTMLStep{}
}

// Name returns the step name.
func (s *ParseHTMLStep) Name() string {
	return StepParseHTML
}

// Do builds pc.Doc from pc.Raw.
func (s *ParseHTMLStep) Do(_ context.Context, pc *PageContext) error {
	decoded, name, err := decodeHTML(pc.Raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s as %s: %w", pc.Task.SourceURL, name, err)
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", pc.Task.SourceURL, err)
	}
	pc.Encoding = name
	pc.Doc = doc
	return nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// decodeHTML converts raw to UTF-8 using the BOM or <meta charset> when
// present. A body that is already valid UTF-8 is kept as is unless it
// declares another encoding.
//
// Design decision: charset.DetermineEncoding falls back to windows-1252 when
// it finds no declaration. We check utf8.Valid before trusting that guess so
// undeclared UTF-8 pages are never double-encoded.
func decodeHTML(raw []byte) ([]byte, string, error) {
	enc, name, certain := charset.DetermineEncoding(raw, "")
	if name == "utf-8" || (!certain && utf8.Valid(raw) && name == "windows-1252") {
		return bytes.TrimPrefix(raw, utf8BOM), "utf-8", nil
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, name, err
	}
	return decoded, name, nil
}

// LocalizeAssetsStep rewrites every resource reference of the page.
type LocalizeAssetsStep struct {
	rewriter *rewrite.HTMLRewriter
	logger   *slog.Logger
}

// NewLocalizeAssetsStep creates a localize step around rewriter.
func NewLocalizeAssetsStep(rewriter *rewrite.HTMLRewriter, logger *slog.Logger) *LocalizeAssetsStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalizeAssetsStep{rewriter: rewriter, logger: logger}
}

// Name returns the step name.
func (s *LocalizeAssetsStep) Name() string {
	return StepLocalizeAssets
}

// Do rewrites pc.Doc in place. Asset failures are not errors; the reference
// is kept remote and counted. Cancellation during the pass is returned so
// a partly localized page is never written.
func (s *LocalizeAssetsStep) Do(ctx context.Context, pc *PageContext) error {
	pc.Stats = s.rewriter.Rewrite(ctx, pc.Doc, pc.Task.SourceURL, pc.Task.OutputPath)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug("assets localized",
		"url", pc.Task.SourceURL,
		"localized", pc.Stats.Localized,
		"failed", pc.Stats.Failed,
		"kept_remote", pc.Stats.KeptRemote,
		"worker", pc.Stats.WorkerRewritten,
	)
	return nil
}

// WritePageStep serializes the document to the page's output path.
type WritePageStep struct{}

// NewWritePageStep creates a write step.
func NewWritePageStep() *WritePageStep {
	return &WritePageStep{}
}

// Name returns the step name.
func (s *WritePageStep) Name() string {
	return StepWritePage
}

// Do renders pc.Doc and writes it, creating the route folder.
func (s *WritePageStep) Do(_ context.Context, pc *PageContext) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, pc.Doc); err != nil {
		return fmt.Errorf("failed to render %s: %w", pc.Task.SourceURL, err)
	}
	if err := asset.WriteFile(pc.Task.OutputPath, buf.Bytes()); err != nil {
		return err
	}
	pc.Output = buf.Bytes()
	return nil
}

// NewPagePipeline returns the standard four-step page pipeline.
func NewPagePipeline(transport asset.Transport, limiter *rate.Limiter, rewriter *rewrite.HTMLRewriter, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewFetchPageStep(transport, limiter),
		NewParseHTMLStep(),
		NewLocalizeAssetsStep(rewriter, p.logger),
		NewWritePageStep(),
	)
	return p
}
