package model

import (
	"time"

	"github.com/google/uuid"
)

// AssetTotals summarizes asset downloads over a whole run.
type AssetTotals struct {
	// Downloaded is the number of files fetched and written.
	Downloaded int64 `json:"downloaded"`

	// Reused is the number of references served by a file already on disk.
	Reused int64 `json:"reused"`

	// Failed is the number of fetches that failed.
	Failed int64 `json:"failed"`
}

// MirrorReport is the outcome of one scrape run.
type MirrorReport struct {
	// RunID uniquely identifies the run in the history database.
	RunID string `json:"run_id"`

	// BaseURL is the mirrored site.
	BaseURL string `json:"base_url"`

	// OutDir is the output root directory.
	OutDir string `json:"out_dir"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// Pages holds one result per discovered page, in discovery order.
	Pages []PageResult `json:"pages"`

	// Assets summarizes asset downloads.
	Assets AssetTotals `json:"assets"`

	// Fallback404 reports whether 404.html was created from index.html.
	Fallback404 bool `json:"fallback_404"`

	// Error holds the message that aborted the run, if any.
	Error string `json:"error,omitempty"`
}

// NewMirrorReport creates a report for a run starting now.
func NewMirrorReport(baseURL, outDir string) *MirrorReport {
	return &MirrorReport{
		RunID:     uuid.NewString(),
		BaseURL:   baseURL,
		OutDir:    outDir,
		StartedAt: time.Now(),
		Pages:     make([]PageResult, 0),
	}
}

// AddPage appends a page result.
func (r *MirrorReport) AddPage(result PageResult) {
	r.Pages = append(r.Pages, result)
}

// Finish marks the run as finished.
func (r *MirrorReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the run duration, or the elapsed time while running.
func (r *MirrorReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountByStatus returns the number of pages with the given status.
func (r *MirrorReport) CountByStatus(status PageStatus) int {
	n := 0
	for _, p := range r.Pages {
		if p.Status == status {
			n++
		}
	}
	return n
}

// Succeeded reports whether the run finished without any page failure.
func (r *MirrorReport) Succeeded() bool {
	return r.Error == "" && r.CountByStatus(PageStatusFailed) == 0
}
