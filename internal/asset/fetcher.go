package asset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Transport retrieves the body of an absolute URL.
// Implementations return an error for network failures and non-2xx
// responses alike.
type Transport interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Stats summarizes what a Fetcher did during a run.
type Stats struct {
	// Downloaded is the number of files written to disk.
	Downloaded int64 `json:"downloaded"`

	// Reused is the number of requests satisfied by an existing file.
	Reused int64 `json:"reused"`

	// Failed is the number of fetches that returned an error.
	Failed int64 `json:"failed"`
}

// EventStatus is the outcome of one EnsureLocal call.
type EventStatus string

const (
	// EventDownloaded means the resource was fetched and written.
	EventDownloaded EventStatus = "downloaded"

	// EventReused means an existing file satisfied the request.
	EventReused EventStatus = "reused"

	// EventFailed means the fetch or the write failed.
	EventFailed EventStatus = "failed"
)

// Event describes one EnsureLocal call. It is passed to the observer set
// with WithObserver.
type Event struct {
	URL    string
	Path   string
	Status EventStatus
	Bytes  int
}

// Fetcher downloads resources into the output tree.
//
// The decision to download is made only by looking at the destination
// path. The counters exist for reporting and are never consulted.
type Fetcher struct {
	transport Transport
	logger    *slog.Logger
	observer  func(Event)

	downloaded atomic.Int64
	reused     atomic.Int64
	failed     atomic.Int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for per-asset debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithObserver registers fn to be called after every EnsureLocal call.
// fn runs on the calling goroutine.
func WithObserver(fn func(Event)) Option {
	return func(f *Fetcher) {
		f.observer = fn
	}
}

// NewFetcher creates a Fetcher that uses transport for network I/O.
func NewFetcher(transport Transport, opts ...Option) *Fetcher {
	f := &Fetcher{transport: transport}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// EnsureLocal makes sure the resource at url exists at destPath.
//
// If destPath already exists with non-zero size, no network I/O happens and
// downloaded is false. Otherwise the resource is fetched, parent directories
// are created, and the body is written; downloaded is true on success.
// Failures are returned as *FetchError.
func (f *Fetcher) EnsureLocal(ctx context.Context, url, destPath string) (bool, error) {
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		f.reused.Add(1)
		f.notify(Event{URL: url, Path: destPath, Status: EventReused})
		return false, nil
	}

	body, err := f.transport.Fetch(ctx, url)
	if err != nil {
		f.failed.Add(1)
		f.notify(Event{URL: url, Path: destPath, Status: EventFailed})
		return false, &FetchError{URL: url, Err: err}
	}

	if err := WriteFile(destPath, body); err != nil {
		f.failed.Add(1)
		f.notify(Event{URL: url, Path: destPath, Status: EventFailed})
		return false, &FetchError{URL: url, Err: err}
	}

	f.downloaded.Add(1)
	f.notify(Event{URL: url, Path: destPath, Status: EventDownloaded, Bytes: len(body)})
	f.logger.Debug("asset downloaded", "url", url, "path", destPath, "bytes", len(body))
	return true, nil
}

func (f *Fetcher) notify(e Event) {
	if f.observer != nil {
		f.observer(e)
	}
}

// FetchText retrieves url without consulting or touching the filesystem.
// It is used for stylesheets, which must be rewritten before they are saved.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := f.transport.Fetch(ctx, url)
	if err != nil {
		f.failed.Add(1)
		return "", &FetchError{URL: url, Err: err}
	}
	return string(body), nil
}

// Stats returns a snapshot of the fetcher's counters.
func (f *Fetcher) Stats() Stats {
	return Stats{
		Downloaded: f.downloaded.Load(),
		Reused:     f.reused.Load(),
		Failed:     f.failed.Load(),
	}
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // mirrored files are served publicly
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // mirrored files are served publicly
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
