package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/staticmirror/internal/asset"
	"github.com/nao1215/staticmirror/internal/model"
	"github.com/nao1215/staticmirror/internal/rewrite"
)

// DefaultCrawlDelay is the pause between page fetches.
const DefaultCrawlDelay = 500 * time.Millisecond

// NotFoundFile is the error page most static hosts serve for unknown paths.
const NotFoundFile = "404.html"

// Recorder receives the progress of a run, typically to persist it.
// Recorder errors are logged and never abort the run.
type Recorder interface {
	StartRun(ctx context.Context, report *model.MirrorReport) error
	RecordPage(ctx context.Context, runID string, result model.PageResult) error
	RecordAsset(ctx context.Context, runID string, event asset.Event) error
	FinishRun(ctx context.Context, report *model.MirrorReport) error
}

// ProgressFunc is called after each page with its 1-based index.
type ProgressFunc func(index, total int, result model.PageResult)

// Mirror renders a list of pages into a static site.
type Mirror struct {
	transport asset.Transport
	outDir    string
	delay     time.Duration
	keepGoing bool
	recorder  Recorder
	progress  ProgressFunc
	logger    *slog.Logger
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithCrawlDelay sets the pause between page fetches. Zero disables it.
func WithCrawlDelay(d time.Duration) MirrorOption {
	return func(m *Mirror) {
		m.delay = d
	}
}

// WithKeepGoing makes page failures non-fatal. Failed pages are recorded in
// the report and the run continues with the next page.
func WithKeepGoing(keepGoing bool) MirrorOption {
	return func(m *Mirror) {
		m.keepGoing = keepGoing
	}
}

// WithRecorder sets the recorder that receives run progress.
func WithRecorder(recorder Recorder) MirrorOption {
	return func(m *Mirror) {
		m.recorder = recorder
	}
}

// WithProgress sets a callback invoked after each page.
func WithProgress(fn ProgressFunc) MirrorOption {
	return func(m *Mirror) {
		m.progress = fn
	}
}

// WithMirrorLogger sets the logger for the mirror and everything it drives.
func WithMirrorLogger(logger *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// NewMirror creates a Mirror writing into outDir.
func NewMirror(transport asset.Transport, outDir string, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		transport: transport,
		outDir:    outDir,
		delay:     DefaultCrawlDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewTasks builds one task per page URL.
func NewTasks(pageURLs []string, outDir string) ([]model.PageTask, error) {
	tasks := make([]model.PageTask, 0, len(pageURLs))
	for _, u := range pageURLs {
		task, err := model.NewPageTask(u, outDir)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Run mirrors tasks in order.
//
// Without keep-going, the first page failure stops the run: remaining pages
// are marked skipped and the error is returned with the report.
// Cancellation always stops the run. The fallback 404 page is only written
// when every page was attempted.
func (m *Mirror) Run(ctx context.Context, baseURL string, tasks []model.PageTask) (*model.MirrorReport, error) {
	report := model.NewMirrorReport(baseURL, m.outDir)
	m.startRun(ctx, report)

	fetcher := asset.NewFetcher(m.transport,
		asset.WithLogger(m.logger),
		asset.WithObserver(func(e asset.Event) {
			m.recordAsset(ctx, report.RunID, e)
		}),
	)
	rewriter := rewrite.NewHTMLRewriter(fetcher, rewrite.NewLayout(m.outDir), rewrite.WithLogger(m.logger))
	p := NewPagePipeline(m.transport, m.limiter(), rewriter, WithLogger(m.logger))

	var runErr error
	for i, task := range tasks {
		pc := NewPageContext(task)
		err := p.Execute(ctx, pc)
		result := pc.Result(err)
		report.AddPage(result)
		m.recordPage(ctx, report.RunID, result)
		if m.progress != nil {
			m.progress(i+1, len(tasks), result)
		}

		if err == nil {
			m.logger.Debug("page written", "url", task.SourceURL, "path", task.OutputPath)
			continue
		}

		m.logger.Warn("page failed", "url", task.SourceURL, "error", err)
		if m.keepGoing && ctx.Err() == nil {
			continue
		}

		runErr = fmt.Errorf("failed to mirror %s: %w", task.SourceURL, err)
		for _, rest := range tasks[i+1:] {
			report.AddPage(model.PageResult{
				URL:        rest.SourceURL,
				OutputPath: rest.OutputPath,
				Status:     model.PageStatusSkipped,
			})
		}
		break
	}

	if runErr == nil {
		created, err := WriteFallback404(m.outDir)
		if err != nil {
			runErr = err
		}
		report.Fallback404 = created
	}

	stats := fetcher.Stats()
	report.Assets = model.AssetTotals{
		Downloaded: stats.Downloaded,
		Reused:     stats.Reused,
		Failed:     stats.Failed,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	report.Finish()
	m.finishRun(ctx, report)

	return report, runErr
}

// limiter returns the page fetch limiter, or nil when there is no delay.
func (m *Mirror) limiter() *rate.Limiter {
	if m.delay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(m.delay), 1)
}

// WriteFallback404 copies <outDir>/index.html to <outDir>/404.html when the
// latter does not exist. It reports whether the file was created.
func WriteFallback404(outDir string) (bool, error) {
	notFound := filepath.Join(outDir, NotFoundFile)
	if _, err := os.Stat(notFound); err == nil {
		return false, nil
	}

	index, err := os.ReadFile(filepath.Join(outDir, model.IndexFile)) //nolint:gosec // path is built from the output directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read index page: %w", err)
	}
	if err := asset.WriteFile(notFound, index); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mirror) startRun(ctx context.Context, report *model.MirrorReport) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.StartRun(ctx, report); err != nil {
		m.logger.Warn("failed to record run start", "run_id", report.RunID, "error", err)
	}
}

func (m *Mirror) recordPage(ctx context.Context, runID string, result model.PageResult) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordPage(ctx, runID, result); err != nil {
		m.logger.Warn("failed to record page", "url", result.URL, "error", err)
	}
}

func (m *Mirror) recordAsset(ctx context.Context, runID string, event asset.Event) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordAsset(ctx, runID, event); err != nil {
		m.logger.Debug("failed to record asset", "url", event.URL, "error", err)
	}
}

// finishRun records the final report. It uses a fresh context so that an
// interrupted run is still written to the history.
func (m *Mirror) finishRun(ctx context.Context, report *model.MirrorReport) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.recorder.FinishRun(ctx, report); err != nil {
		m.logger.Warn("failed to record run", "run_id", report.RunID, "error", err)
	}
}
