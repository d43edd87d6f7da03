package pipeline

import (
	"time"

	"golang.org/x/net/html"

	"github.com/nao1215/staticmirror/internal/model"
	"github.com/nao1215/staticmirror/internal/rewrite"
)

// PageContext carries one page through the pipeline.
type PageContext struct {
	// Task is the page being mirrored.
	Task model.PageTask

	// Raw is the fetched HTML body as received.
	Raw []byte

	// Encoding is the character set the body was decoded from.
	Encoding string

	// Doc is the parsed document tree, mutated by localize_assets.
	Doc *html.Node

	// Stats counts what localize_assets did.
	Stats rewrite.Stats

	// Output is the serialized HTML written to Task.OutputPath.
	Output []byte

	// Performed lists the steps that completed, in order.
	Performed []string

	started time.Time
}

// NewPageContext creates the context for task.
func NewPageContext(task model.PageTask) *PageContext {
	return &PageContext{
		Task:      task,
		Performed: make([]string, 0, 4),
		started:   time.Now(),
	}
}

// Result converts the context into a page result. A nil err yields a
// written page.
func (pc *PageContext) Result(err error) model.PageResult {
	result := model.PageResult{
		URL:             pc.Task.SourceURL,
		OutputPath:      pc.Task.OutputPath,
		Status:          model.PageStatusWritten,
		Localized:       pc.Stats.Localized,
		AssetFailures:   pc.Stats.Failed,
		KeptRemote:      pc.Stats.KeptRemote,
		Stylesheets:     pc.Stats.Stylesheets,
		Anchors:         pc.Stats.Anchors,
		WorkerRewritten: pc.Stats.WorkerRewritten,
		Duration:        time.Since(pc.started),
	}
	if err != nil {
		result.Status = model.PageStatusFailed
		result.Error = err.Error()
		return result
	}
	result.ComputeHash(pc.Output)
	return result
}
