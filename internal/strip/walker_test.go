package strip

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const strippable = `<html><head><script src="https://static.parastorage.com/x.js"></script></head><body>hi</body></html>`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestWalker_Run(t *testing.T) {
	t.Parallel()

	t.Run("dry run reports without writing", func(t *testing.T) {
		t.Parallel()

		root := writeTree(t, map[string]string{"index.html": strippable})
		summary, err := NewWalker().Run(context.Background(), root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if summary.Changed() != 1 {
			t.Errorf("expected 1 changed file, got %d", summary.Changed())
		}
		if got := readFile(t, filepath.Join(root, "index.html")); got != strippable {
			t.Error("expected file to be left alone without in-place")
		}
		if summary.Line() != "Processed 1 HTML files." {
			t.Errorf("unexpected summary line %q", summary.Line())
		}
	})

	t.Run("in place writes and second run is a no-op", func(t *testing.T) {
		t.Parallel()

		root := writeTree(t, map[string]string{
			"index.html":      strippable,
			"news/index.html": strippable,
			"assets/site.css": "body{}",
		})
		w := NewWalker(WithInPlace(true), WithJobs(4))

		summary, err := w.Run(context.Background(), root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(summary.Files) != 2 || summary.Changed() != 2 {
			t.Fatalf("expected 2 changed files, got %+v", summary)
		}
		if summary.Files[0].Path != filepath.Join(root, "index.html") {
			t.Errorf("expected sorted results, got %s first", summary.Files[0].Path)
		}

		stripped := readFile(t, filepath.Join(root, "news", "index.html"))
		summary, err = w.Run(context.Background(), root)
		if err != nil {
			t.Fatalf("second Run failed: %v", err)
		}
		if summary.Line() != "No changes made." {
			t.Errorf("expected no changes on second run, got %q", summary.Line())
		}
		if readFile(t, filepath.Join(root, "news", "index.html")) != stripped {
			t.Error("expected second run to leave the file byte-identical")
		}
	})

	t.Run("admin and excluded files are skipped", func(t *testing.T) {
		t.Parallel()

		root := writeTree(t, map[string]string{
			"admin/index.html": strippable,
			"drafts/a/b.html":  strippable,
			"keep/index.html":  strippable,
		})
		w := NewWalker(WithInPlace(true), WithExcludes([]string{"drafts/**"}))

		summary, err := w.Run(context.Background(), root)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if summary.Skipped != 2 {
			t.Errorf("expected 2 skipped files, got %d", summary.Skipped)
		}
		if got := readFile(t, filepath.Join(root, "admin", "index.html")); got != strippable {
			t.Error("admin file must not be touched")
		}
		if got := readFile(t, filepath.Join(root, "drafts", "a", "b.html")); got != strippable {
			t.Error("excluded file must not be touched")
		}
		if got := readFile(t, filepath.Join(root, "keep", "index.html")); got == strippable {
			t.Error("expected regular file to be stripped")
		}
	})

	t.Run("missing root yields empty summary", func(t *testing.T) {
		t.Parallel()

		summary, err := NewWalker().Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(summary.Files) != 0 || summary.Line() != "No changes made." {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		root := writeTree(t, map[string]string{"index.html": strippable})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewWalker().Run(ctx, root); err == nil {
			t.Error("expected context error")
		}
	})
}
