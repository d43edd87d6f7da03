package asset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeTransport serves canned bodies and counts calls per URL.
type fakeTransport struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  map[string]int
}

func newFakeTransport(bodies map[string][]byte) *fakeTransport {
	return &fakeTransport{bodies: bodies, calls: make(map[string]int)}
}

func (f *fakeTransport) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return body, nil
}

func (f *fakeTransport) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func TestFetcher_EnsureLocal(t *testing.T) {
	t.Parallel()

	t.Run("second call does not touch the network", func(t *testing.T) {
		t.Parallel()

		url := "https://h/a.png"
		ft := newFakeTransport(map[string][]byte{url: []byte("PNG")})
		f := NewFetcher(ft)
		dest := filepath.Join(t.TempDir(), "assets", "a.png")

		downloaded, err := f.EnsureLocal(context.Background(), url, dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !downloaded {
			t.Error("expected first call to download")
		}

		downloaded, err = f.EnsureLocal(context.Background(), url, dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if downloaded {
			t.Error("expected second call to reuse the file")
		}

		if got := ft.count(url); got != 1 {
			t.Errorf("expected 1 network call, got %d", got)
		}

		content, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read asset: %v", err)
		}
		if string(content) != "PNG" {
			t.Errorf("unexpected content %q", content)
		}

		stats := f.Stats()
		if stats.Downloaded != 1 || stats.Reused != 1 || stats.Failed != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("existing file is never overwritten", func(t *testing.T) {
		t.Parallel()

		url := "https://h/a.css"
		ft := newFakeTransport(map[string][]byte{url: []byte("new")})
		f := NewFetcher(ft)
		dest := filepath.Join(t.TempDir(), "a.css")
		if err := os.WriteFile(dest, []byte("old"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := f.EnsureLocal(context.Background(), url, dest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(dest)
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "old" {
			t.Errorf("expected existing content to be kept, got %q", content)
		}
		if ft.count(url) != 0 {
			t.Error("expected no network call")
		}
	})

	t.Run("empty file is downloaded again", func(t *testing.T) {
		t.Parallel()

		url := "https://h/a.woff2"
		ft := newFakeTransport(map[string][]byte{url: []byte("font")})
		f := NewFetcher(ft)
		dest := filepath.Join(t.TempDir(), "a.woff2")
		if err := os.WriteFile(dest, nil, 0o600); err != nil {
			t.Fatal(err)
		}

		downloaded, err := f.EnsureLocal(context.Background(), url, dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !downloaded {
			t.Error("expected empty file to be replaced")
		}
	})

	t.Run("failure is wrapped in FetchError", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(newFakeTransport(nil))
		dest := filepath.Join(t.TempDir(), "missing.png")

		_, err := f.EnsureLocal(context.Background(), "https://h/missing.png", dest)
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fetchErr.URL != "https://h/missing.png" {
			t.Errorf("unexpected URL %q", fetchErr.URL)
		}
		if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
			t.Error("expected no file to be written on failure")
		}
		if f.Stats().Failed != 1 {
			t.Errorf("expected 1 failure, got %d", f.Stats().Failed)
		}
	})
}

func TestFetcher_FetchText(t *testing.T) {
	t.Parallel()

	url := "https://h/site.css"
	ft := newFakeTransport(map[string][]byte{url: []byte("body{}")})
	f := NewFetcher(ft)

	for range 2 {
		text, err := f.FetchText(context.Background(), url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "body{}" {
			t.Errorf("unexpected text %q", text)
		}
	}
	if got := ft.count(url); got != 2 {
		t.Errorf("expected FetchText to bypass the filesystem check, got %d calls", got)
	}
}

func TestFetcher_Observer(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport(map[string][]byte{
		"https://h/a.png": []byte("png"),
	})
	var events []Event
	f := NewFetcher(tr, WithObserver(func(e Event) {
		events = append(events, e)
	}))

	dir := t.TempDir()
	ctx := context.Background()
	_, _ = f.EnsureLocal(ctx, "https://h/a.png", filepath.Join(dir, "a.png"))
	_, _ = f.EnsureLocal(ctx, "https://h/a.png", filepath.Join(dir, "a.png"))
	_, _ = f.EnsureLocal(ctx, "https://h/missing.png", filepath.Join(dir, "missing.png"))

	want := []EventStatus{EventDownloaded, EventReused, EventFailed}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, status := range want {
		if events[i].Status != status {
			t.Errorf("event %d: got %q, expected %q", i, events[i].Status, status)
		}
	}
	if events[0].Bytes != 3 {
		t.Errorf("expected 3 bytes, got %d", events[0].Bytes)
	}
	if events[2].URL != "https://h/missing.png" {
		t.Errorf("unexpected URL %q", events[2].URL)
	}
}
