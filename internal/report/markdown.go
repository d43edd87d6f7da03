package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/staticmirror/internal/database"
	"github.com/nao1215/staticmirror/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H1("Static Mirror Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.BaseURL + "`"},
			{"Output", "`" + report.OutDir + "`"},
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format(timeFormat)},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.MirrorReport) string {
	if report.Error != "" {
		return "❌ Failed - " + report.Error
	}
	if report.CountByStatus(model.PageStatusFailed) > 0 {
		return "⚠️ Complete with page failures"
	}
	return "✅ Complete"
}

// writeSummary writes the totals table, a page status chart, and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.MirrorReport) {
	written := report.CountByStatus(model.PageStatusWritten)
	failed := report.CountByStatus(model.PageStatusFailed)
	skipped := report.CountByStatus(model.PageStatusSkipped)

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Item", "Count"},
		Rows: [][]string{
			{"Pages written", strconv.Itoa(written)},
			{"Pages failed", strconv.Itoa(failed)},
			{"Pages skipped", strconv.Itoa(skipped)},
			{"Assets downloaded", strconv.FormatInt(report.Assets.Downloaded, 10)},
			{"Assets reused", strconv.FormatInt(report.Assets.Reused, 10)},
			{"Asset failures", strconv.FormatInt(report.Assets.Failed, 10)},
		},
	})
	md.PlainText("")

	if failed+skipped > 0 {
		w.writePieChart(md, written, failed, skipped)
	}

	switch {
	case report.Error != "":
		md.Cautionf("The run stopped early. %d page(s) were not mirrored.", failed+skipped)
	case failed > 0:
		md.Warningf("%d page(s) could not be mirrored and are missing from the output.", failed)
	case report.Assets.Failed > 0:
		md.Importantf("%d asset request(s) failed. Those references still point at the origin.", report.Assets.Failed)
	default:
		md.Tip("Every page and asset was mirrored.")
	}
	md.PlainText("")

	if report.Fallback404 {
		md.Note("404.html was created from index.html.")
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, written, failed, skipped int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if written > 0 {
		chart.LabelAndIntValue("Written", uint64(written))
	}
	if failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(skipped))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes one table row per page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		detail := "-"
		switch {
		case p.Error != "":
			detail = truncateString(p.Error, 60)
		case p.WorkerRewritten:
			detail = "worker localized"
		}
		rows[i] = []string{
			truncateString(p.URL, 60),
			string(p.Status),
			strconv.Itoa(p.Localized),
			strconv.Itoa(p.AssetFailures),
			detail,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Localized", "Asset Failures", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [staticmirror](https://github.com/nao1215/staticmirror)*")
}

// WriteHistory outputs the run list as a Markdown table.
func (w *MarkdownWriter) WriteHistory(runs []database.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			"`" + shortID(run.ID) + "`",
			run.StartedAt.Format(timeFormat),
			run.Status,
			strconv.Itoa(run.PagesWritten),
			strconv.Itoa(run.PagesFailed),
			run.BaseURL,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Status", "Pages", "Failed", "Site"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}
