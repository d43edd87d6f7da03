package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/staticmirror/internal/database"
	"github.com/nao1215/staticmirror/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.MirrorReport {
	report := model.NewMirrorReport("https://example.com", "site")
	report.RunID = "0d7f3c2a-1111-2222-3333-444455556666"
	report.StartedAt = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(3 * time.Second)
	report.AddPage(model.PageResult{
		URL:             "https://example.com/",
		OutputPath:      "site/index.html",
		Status:          model.PageStatusWritten,
		Localized:       12,
		WorkerRewritten: true,
	})
	report.AddPage(model.PageResult{
		URL:        "https://example.com/news",
		OutputPath: "site/news/index.html",
		Status:     model.PageStatusFailed,
		Error:      "fetch_page: 503 Service Unavailable",
	})
	report.Assets = model.AssetTotals{Downloaded: 10, Reused: 2, Failed: 1}
	report.Fallback404 = true
	return report
}

func createTestRuns() []database.RunRecord {
	return []database.RunRecord{
		{
			ID:           "0d7f3c2a-1111-2222-3333-444455556666",
			BaseURL:      "https://example.com",
			StartedAt:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
			Status:       database.RunStatusSucceeded,
			PagesWritten: 5,
		},
		{
			ID:          "9a9a9a9a-1111-2222-3333-444455556666",
			BaseURL:     "https://other.example",
			StartedAt:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
			Status:      database.RunStatusFailed,
			PagesFailed: 1,
		},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"STATICMIRROR REPORT", "https://example.com", "0d7f3c2a-1111", "Complete with page failures"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("lists only failed pages by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[FAIL] https://example.com/news") {
			t.Error("expected failed page to be listed")
		}
		if !strings.Contains(output, "503 Service Unavailable") {
			t.Error("expected failure reason")
		}
		if strings.Contains(output, "[OK]") {
			t.Error("written pages should be hidden without verbose")
		}
	})

	t.Run("verbose lists every page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[OK]   https://example.com/") {
			t.Error("expected written page to be listed")
		}
		if !strings.Contains(output, "12 localized") || !strings.Contains(output, "worker localized") {
			t.Error("expected page details")
		}
	})

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Pages written:      1", "Pages failed:       1", "Assets downloaded:  10", "404.html:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("shows run error", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = "failed to mirror https://example.com/news"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "FAILED - failed to mirror") {
			t.Error("expected error in status")
		}
	})

	t.Run("no color codes by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected plain output")
		}
	})

	t.Run("color codes when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithColor(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})
}

func TestSimpleWriterWriteHistory(t *testing.T) {
	t.Parallel()

	t.Run("one line per run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteHistory(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[1], "0d7f3c2a  ") {
			t.Errorf("unexpected first row %q", lines[1])
		}
		if !strings.Contains(lines[2], "failed") || !strings.Contains(lines[2], "https://other.example") {
			t.Errorf("unexpected second row %q", lines[2])
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteHistory(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "No runs recorded.\n" {
			t.Errorf("got %q", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.MirrorReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.RunID != "0d7f3c2a-1111-2222-3333-444455556666" || len(decoded.Pages) != 2 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("includes version in output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" || decoded.Report == nil {
			t.Errorf("unexpected wrapper %+v", decoded)
		}
	})

	t.Run("empty history is an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteHistory(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n" {
			t.Errorf("got %q, expected %q", buf.String(), "[]\n")
		}
	})
}

func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).WriteHistory(createTestRuns()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n>\t{") {
		t.Errorf("expected custom prefix and indent, got %q", buf.String())
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Static Mirror Report", "## Summary", "## Pages", "`https://example.com`", "https://example.com/news"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("warns about failed pages with chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected warning alert")
		}
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid pie chart")
		}
		if !strings.Contains(output, "[!NOTE]") {
			t.Error("expected fallback 404 note")
		}
	})

	t.Run("tip for clean run", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Pages = report.Pages[:1]
		report.Assets.Failed = 0

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(buf.String(), "```mermaid") {
			t.Error("chart should be omitted when every page was written")
		}
	})

	t.Run("writes history table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteHistory(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "# Run History") || !strings.Contains(output, "`0d7f3c2a`") {
			t.Errorf("unexpected history output %q", output)
		}
	})
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   any
	}{
		{FormatText, &SimpleWriter{}},
		{"", &SimpleWriter{}},
		{FormatJSON, &JSONWriter{}},
		{FormatMarkdown, &MarkdownWriter{}},
	}

	for _, tt := range tests {
		w, err := NewWriter(tt.format, &bytes.Buffer{}, Options{})
		if err != nil {
			t.Fatalf("NewWriter(%q) failed: %v", tt.format, err)
		}
		switch tt.want.(type) {
		case *SimpleWriter:
			if _, ok := w.(*SimpleWriter); !ok {
				t.Errorf("NewWriter(%q) returned %T", tt.format, w)
			}
		case *JSONWriter:
			if _, ok := w.(*JSONWriter); !ok {
				t.Errorf("NewWriter(%q) returned %T", tt.format, w)
			}
		case *MarkdownWriter:
			if _, ok := w.(*MarkdownWriter); !ok {
				t.Errorf("NewWriter(%q) returned %T", tt.format, w)
			}
		}
	}

	if _, err := NewWriter("xml", &bytes.Buffer{}, Options{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

// TestMultiWriter tests writing to several writers at once.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("got %d bytes, expected %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("writes history to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewMarkdownWriter(&b))
		if _, err := mw.WriteHistory(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestReport())
		if err != nil || n != 0 {
			t.Errorf("got n=%d err=%v", n, err)
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, expected %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
