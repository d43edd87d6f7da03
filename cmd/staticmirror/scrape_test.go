package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/staticmirror/internal/model"
	"github.com/nao1215/staticmirror/internal/report"
)

// testSite serves a two-page site and records request cookies.
type testSite struct {
	*httptest.Server

	mu      sync.Mutex
	cookies []string
}

func newTestSite(t *testing.T, failPath string) *testSite {
	t.Helper()

	s := &testSite{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.cookies = append(s.cookies, r.Header.Get("Cookie"))
		s.mu.Unlock()

		if r.URL.Path == failPath {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/sitemap.xml":
			_, _ = w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` +
				`<url><loc>` + s.URL + `/</loc></url>` +
				`<url><loc>` + s.URL + `/about</loc></url>` +
				`</urlset>`))
		case "/":
			_, _ = w.Write([]byte(`<html><head><link rel="stylesheet" href="/style.css"></head>` +
				`<body><img src="/logo.png"><a href="/about">About</a></body></html>`))
		case "/about":
			_, _ = w.Write([]byte(`<html><head></head><body><img src="/logo.png"><a href="/">Home</a></body></html>`))
		case "/style.css":
			w.Header().Set("Content-Type", "text/css")
			_, _ = w.Write([]byte(`body{color:#333}`))
		case "/logo.png":
			_, _ = w.Write([]byte("\x89PNG"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testSite) sawCookie(cookie string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cookies {
		if c == cookie {
			return true
		}
	}
	return false
}

func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	tests := []struct {
		name     string
		defValue string
	}{
		{"out-dir", "site"},
		{"sitemap", "/sitemap.xml"},
		{"delay", "500ms"},
		{"timeout", "45s"},
		{"report", "text"},
		{"keep-going", "false"},
		{"no-history", "false"},
	}
	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.name)
		if flag == nil {
			t.Errorf("expected --%s flag", tt.name)
			continue
		}
		if flag.DefValue != tt.defValue {
			t.Errorf("--%s: got default %q, expected %q", tt.name, flag.DefValue, tt.defValue)
		}
	}
}

func TestScrapeCmd(t *testing.T) {
	t.Parallel()

	t.Run("mirrors site and prints JSON report", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, "")
		outDir := filepath.Join(t.TempDir(), "site")

		stdout, stderr, err := executeCommand(t, "scrape",
			"--base-url", site.URL+"/",
			"--out-dir", outDir,
			"--delay", "0s",
			"--no-history",
			"--report", "json",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr)
		}

		for _, rel := range []string{"index.html", "about/index.html", "404.html"} {
			if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
				t.Errorf("expected %s: %v", rel, err)
			}
		}

		index, _ := os.ReadFile(filepath.Join(outDir, "index.html"))
		if strings.Contains(string(index), site.URL+"/logo.png") {
			t.Error("image reference was not localized")
		}

		var wrapped report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &wrapped); err != nil {
			t.Fatalf("stdout is not a JSON report: %v\n%s", err, stdout)
		}
		if wrapped.Report == nil || len(wrapped.Report.Pages) != 2 {
			t.Fatalf("unexpected report %+v", wrapped.Report)
		}
		if got := wrapped.Report.CountByStatus(model.PageStatusWritten); got != 2 {
			t.Errorf("got %d written pages, expected 2", got)
		}
		if !wrapped.Report.Fallback404 {
			t.Error("expected fallback 404")
		}

		if !strings.Contains(stderr, "Found 2 pages") || !strings.Contains(stderr, "[2/2]") {
			t.Errorf("expected progress on stderr, got %q", stderr)
		}
	})

	t.Run("page failure aborts and still reports", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, "/")
		outDir := filepath.Join(t.TempDir(), "site")
		reportFile := filepath.Join(t.TempDir(), "out", "report.md")

		_, _, err := executeCommand(t, "scrape",
			"--base-url", site.URL,
			"--out-dir", outDir,
			"--delay", "0s",
			"--no-history",
			"--report", "markdown",
			"--report-file", reportFile,
		)
		if err == nil {
			t.Fatal("expected error for failed page")
		}

		content, readErr := os.ReadFile(reportFile)
		if readErr != nil {
			t.Fatalf("expected report file: %v", readErr)
		}
		if !strings.Contains(string(content), "# Static Mirror Report") {
			t.Error("expected markdown report")
		}
		if _, err := os.Stat(filepath.Join(outDir, "404.html")); err == nil {
			t.Error("404.html must not be written for an aborted run")
		}
	})

	t.Run("keep going mirrors remaining pages", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, "/")
		outDir := filepath.Join(t.TempDir(), "site")

		_, _, err := executeCommand(t, "scrape",
			"--base-url", site.URL,
			"--out-dir", outDir,
			"--delay", "0s",
			"--no-history",
			"--keep-going",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(outDir, "about", "index.html")); err != nil {
			t.Errorf("expected about page: %v", err)
		}
	})

	t.Run("missing sitemap fails", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, "/sitemap.xml")
		_, _, err := executeCommand(t, "scrape",
			"--base-url", site.URL,
			"--out-dir", t.TempDir(),
			"--no-history",
		)
		if err == nil || !strings.Contains(err.Error(), "sitemap discovery failed") {
			t.Errorf("expected sitemap error, got %v", err)
		}
	})

	t.Run("config file cookie is sent", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, "")
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := "defaults:\n  delay: 0s\nsites:\n  127.0.0.1:\n    cookie: \"svSession=from-config\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		_, _, err := executeCommand(t, "scrape",
			"--base-url", site.URL,
			"--out-dir", filepath.Join(t.TempDir(), "site"),
			"--config", configPath,
			"--no-history",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !site.sawCookie("svSession=from-config") {
			t.Error("expected cookie from config file")
		}
	})

	t.Run("explicit missing config fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "scrape",
			"--base-url", "https://example.com",
			"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		)
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected config not found error, got %v", err)
		}
	})

	t.Run("requires base url", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "scrape")
		if err == nil || !strings.Contains(err.Error(), "base-url") {
			t.Errorf("expected base-url error, got %v", err)
		}
	})

	t.Run("rejects unknown report format", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "scrape", "--base-url", "https://example.com", "--report", "xml")
		if err == nil || !strings.Contains(err.Error(), "invalid report format") {
			t.Errorf("expected report format error, got %v", err)
		}
	})
}
