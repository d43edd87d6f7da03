package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/staticmirror/internal/strip"
)

const wixPage = `<!DOCTYPE html><html><head>` +
	`<script src="https://static.parastorage.com/services/wix-thunderbolt/main.js"></script>` +
	`<script type="application/ld+json">{"@type":"Organization"}</script>` +
	`</head><body><wix-bg-image><p>Hello</p></wix-bg-image></body></html>`

func writeStripFixture(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	for _, rel := range []string{"index.html", "admin/index.html"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(wixPage), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestStripCmd(t *testing.T) {
	t.Parallel()

	t.Run("has flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewStripCmd()
		root := cmd.Flags().Lookup("root")
		if root == nil || root.DefValue != "site" {
			t.Error("expected --root flag defaulting to site")
		}
		for _, name := range []string{"in-place", "jobs", "exclude", "config"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected --%s flag", name)
			}
		}
	})

	t.Run("reports without writing", func(t *testing.T) {
		t.Parallel()

		root := writeStripFixture(t)
		stdout, _, err := executeCommand(t, "strip", "--root", root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "Processed 1 HTML files.\n" {
			t.Errorf("got %q, expected %q", stdout, "Processed 1 HTML files.\n")
		}

		content, _ := os.ReadFile(filepath.Join(root, "index.html"))
		if string(content) != wixPage {
			t.Error("file was modified without --in-place")
		}
	})

	t.Run("in place strips and is idempotent", func(t *testing.T) {
		t.Parallel()

		root := writeStripFixture(t)
		if _, _, err := executeCommand(t, "strip", "--root", root, "--in-place", "--jobs", "2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, _ := os.ReadFile(filepath.Join(root, "index.html"))
		got := string(content)
		if strings.Contains(got, "parastorage") {
			t.Error("runtime script was not removed")
		}
		if !strings.Contains(got, "application/ld+json") {
			t.Error("structured data was removed")
		}
		if !strings.Contains(got, strip.MarkerComment) {
			t.Error("expected marker comment")
		}

		admin, _ := os.ReadFile(filepath.Join(root, "admin", "index.html"))
		if string(admin) != wixPage {
			t.Error("admin page was modified")
		}

		stdout, _, err := executeCommand(t, "strip", "--root", root, "--in-place")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "No changes made.\n" {
			t.Errorf("got %q on second run, expected %q", stdout, "No changes made.\n")
		}
	})

	t.Run("exclude leaves files alone", func(t *testing.T) {
		t.Parallel()

		root := writeStripFixture(t)
		stdout, _, err := executeCommand(t, "strip", "--root", root, "--in-place", "--exclude", "index.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "No changes made.\n" {
			t.Errorf("got %q, expected %q", stdout, "No changes made.\n")
		}
	})

	t.Run("missing root succeeds", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "strip", "--root", filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "No changes made.\n" {
			t.Errorf("got %q, expected %q", stdout, "No changes made.\n")
		}
	})

	t.Run("walk error still exits cleanly", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "plain.txt")
		if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}

		stdout, stderr, err := executeCommand(t, "strip", "--root", filepath.Join(file, "site"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "No changes made.\n" {
			t.Errorf("got %q, expected %q", stdout, "No changes made.\n")
		}
		if !strings.Contains(stderr, "strip walk failed") {
			t.Errorf("expected walk error to be logged, got %q", stderr)
		}
	})

	t.Run("invalid jobs", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "strip", "--root", t.TempDir(), "--jobs", "0")
		if err == nil || !strings.Contains(err.Error(), "invalid jobs") {
			t.Errorf("expected invalid jobs error, got %v", err)
		}
	})
}
