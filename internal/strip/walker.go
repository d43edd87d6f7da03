package strip

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// skippedSegment is a path segment whose files are never touched. The site
// repository keeps its CMS admin UI there.
const skippedSegment = "admin"

// Walker strips every HTML file below a root directory.
type Walker struct {
	inPlace  bool
	jobs     int
	excludes []string
	logger   *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithInPlace makes the walker write changed files back to disk.
// Without it, the walker only reports what would change.
func WithInPlace(inPlace bool) WalkerOption {
	return func(w *Walker) {
		w.inPlace = inPlace
	}
}

// WithJobs sets how many files are processed concurrently.
func WithJobs(jobs int) WalkerOption {
	return func(w *Walker) {
		if jobs > 0 {
			w.jobs = jobs
		}
	}
}

// WithExcludes adds doublestar glob patterns, matched against the path
// relative to the root, for files that must be left alone.
func WithExcludes(patterns []string) WalkerOption {
	return func(w *Walker) {
		w.excludes = append(w.excludes, patterns...)
	}
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{jobs: 1}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// FileResult is the outcome for a single file.
type FileResult struct {
	// Path is the file path.
	Path string `json:"path"`

	// Changed reports whether stripping altered the file's content.
	Changed bool `json:"changed"`

	// Result holds the per-rule counts.
	Result Result `json:"result"`

	// Error is set when the file could not be read, parsed, or written.
	Error string `json:"error,omitempty"`
}

// Summary is the outcome of one walk.
type Summary struct {
	// Files lists per-file results in sorted path order.
	Files []FileResult `json:"files"`

	// Skipped is the number of HTML files excluded from processing.
	Skipped int `json:"skipped"`
}

// Changed returns the number of changed files.
func (s *Summary) Changed() int {
	n := 0
	for _, f := range s.Files {
		if f.Changed {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be processed.
func (s *Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Line returns the one-line summary printed by the strip command.
func (s *Summary) Line() string {
	if s.Changed() == 0 {
		return "No changes made."
	}
	return fmt.Sprintf("Processed %d HTML files.", len(s.Files))
}

// Run strips every *.html file under root.
// Per-file failures are recorded in the summary and never abort the walk.
// A missing root yields an empty summary.
func (w *Walker) Run(ctx context.Context, root string) (*Summary, error) {
	paths, skipped, err := w.collect(root)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Files:   make([]FileResult, len(paths)),
		Skipped: skipped,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary.Files[i] = w.processFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// collect returns the sorted HTML files under root and the number skipped.
func (w *Walker) collect(root string) ([]string, int, error) {
	var (
		paths   []string
		skipped int
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if w.excluded(filepath.ToSlash(rel)) {
			skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("strip root does not exist", "root", root)
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, skipped, nil
}

// excluded reports whether the root-relative slash path rel must be skipped.
func (w *Walker) excluded(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if segment == skippedSegment {
			return true
		}
	}
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// processFile strips one file and writes it back when allowed and changed.
func (w *Walker) processFile(path string) FileResult {
	fr := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		fr.Error = err.Error()
		w.logger.Warn("failed to stat file", "path", path, "error", err)
		return fr
	}
	original, err := os.ReadFile(path) //nolint:gosec // paths come from walking the user-selected root
	if err != nil {
		fr.Error = err.Error()
		w.logger.Warn("failed to read file", "path", path, "error", err)
		return fr
	}

	stripped, result, err := StripHTML(string(original))
	if err != nil {
		fr.Error = err.Error()
		w.logger.Warn("failed to strip file", "path", path, "error", err)
		return fr
	}
	fr.Result = result
	fr.Changed = stripped != string(original)

	if w.inPlace && fr.Changed {
		if err := os.WriteFile(path, []byte(stripped), info.Mode().Perm()); err != nil {
			fr.Error = err.Error()
			w.logger.Warn("failed to write file", "path", path, "error", err)
			return fr
		}
	}

	w.logger.Debug("stripped",
		"path", path,
		"changed", fr.Changed,
		"removed", result.RemovedTotal(),
		"unwrapped", result.Unwrapped,
	)
	return fr
}
