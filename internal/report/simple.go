package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/nao1215/staticmirror/internal/database"
	"github.com/nao1215/staticmirror/internal/model"
)

const (
	lineWidth  = 70
	timeFormat = "2006-01-02 15:04:05 MST"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: Color is off by default so that output piped to files
// stays plain. The CLI turns it on when stdout is a terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page instead of only the failed ones.
	verbose bool

	ok   *color.Color
	fail *color.Color
	warn *color.Color
	bold *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables listing of every page.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.ok, w.fail, w.warn, w.bold} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		ok:         color.New(color.FgGreen),
		fail:       color.New(color.FgRed, color.Bold),
		warn:       color.New(color.FgYellow),
		bold:       color.New(color.Bold),
	}
	WithColor(false)(w)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run report in human-readable format.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writePages(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", lineWidth))
	sb.WriteString("\n")
	sb.WriteString(w.bold.Sprint("                        STATICMIRROR REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", lineWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:      %s\n", report.BaseURL)
	fmt.Fprintf(sb, "Output:    %s\n", report.OutDir)
	fmt.Fprintf(sb, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", report.StartedAt.Format(timeFormat))
	fmt.Fprintf(sb, "Duration:  %s\n", report.Duration().Round(time.Millisecond))

	switch {
	case report.Error != "":
		fmt.Fprintf(sb, "Status:    %s\n", w.fail.Sprint("FAILED - "+report.Error))
	case report.CountByStatus(model.PageStatusFailed) > 0:
		fmt.Fprintf(sb, "Status:    %s\n", w.warn.Sprint("Complete with page failures"))
	default:
		fmt.Fprintf(sb, "Status:    %s\n", w.ok.Sprint("Complete"))
	}
	sb.WriteString("\n")
}

// writePages lists failed pages, or every page in verbose mode.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.MirrorReport) {
	listed := 0
	for _, p := range report.Pages {
		if w.verbose || p.Status == model.PageStatusFailed {
			listed++
		}
	}
	if listed == 0 {
		return
	}

	w.writeSection(sb, "PAGES")
	for _, p := range report.Pages {
		if !w.verbose && p.Status != model.PageStatusFailed {
			continue
		}
		switch p.Status {
		case model.PageStatusWritten:
			fmt.Fprintf(sb, "  %s %s\n", w.ok.Sprint("[OK]  "), p.URL)
			fmt.Fprintf(sb, "         -> %s (%d localized", p.OutputPath, p.Localized)
			if p.AssetFailures > 0 {
				fmt.Fprintf(sb, ", %d kept remote after failure", p.AssetFailures)
			}
			if p.WorkerRewritten {
				sb.WriteString(", worker localized")
			}
			sb.WriteString(")\n")
		case model.PageStatusFailed:
			fmt.Fprintf(sb, "  %s %s\n", w.fail.Sprint("[FAIL]"), p.URL)
			fmt.Fprintf(sb, "         %s\n", p.Error)
		case model.PageStatusSkipped:
			fmt.Fprintf(sb, "  %s %s\n", w.warn.Sprint("[SKIP]"), p.URL)
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes page and asset totals.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.MirrorReport) {
	w.writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Pages written:      %d\n", report.CountByStatus(model.PageStatusWritten))
	fmt.Fprintf(sb, "  Pages failed:       %d\n", report.CountByStatus(model.PageStatusFailed))
	fmt.Fprintf(sb, "  Pages skipped:      %d\n", report.CountByStatus(model.PageStatusSkipped))
	fmt.Fprintf(sb, "  Assets downloaded:  %d\n", report.Assets.Downloaded)
	fmt.Fprintf(sb, "  Assets reused:      %d\n", report.Assets.Reused)
	fmt.Fprintf(sb, "  Asset failures:     %d\n", report.Assets.Failed)
	if report.Fallback404 {
		sb.WriteString("  404.html:           created from index.html\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", lineWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", lineWidth))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", lineWidth))
	sb.WriteString("\n")
}

// WriteHistory outputs one line per run.
func (w *SimpleWriter) WriteHistory(runs []database.RunRecord) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No runs recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(w.bold.Sprintf("%-8s  %-19s  %-9s  %5s  %6s  %s", "RUN", "STARTED", "STATUS", "PAGES", "FAILED", "SITE"))
	sb.WriteString("\n")
	for _, run := range runs {
		status := fmt.Sprintf("%-9s", run.Status)
		switch run.Status {
		case database.RunStatusSucceeded:
			status = w.ok.Sprint(status)
		case database.RunStatusFailed:
			status = w.fail.Sprint(status)
		default:
			status = w.warn.Sprint(status)
		}
		fmt.Fprintf(&sb, "%-8s  %-19s  %s  %5d  %6d  %s\n",
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			run.PagesWritten,
			run.PagesFailed,
			run.BaseURL,
		)
	}

	return w.output.Write([]byte(sb.String()))
}
