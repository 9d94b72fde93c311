// Package mutate applies focused edits to workflow files. Every edit parses
// the file fresh, changes the targeted tools, and writes the result back
// unless the caller asked for a preview.
package mutate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// Recorder receives every edit that was written to disk.
type Recorder interface {
	Record(ctx context.Context, workflow, operation string, changes []string) error
}

// Editor runs edits against workflow files in a Store.
type Editor struct {
	store   *workflow.Store
	rec     Recorder
	log     *zap.SugaredLogger
	onWrite func(path string)
}

// Option configures an Editor.
type Option func(*Editor)

// WithRecorder journals successful writes.
func WithRecorder(r Recorder) Option {
	return func(e *Editor) { e.rec = r }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Editor) { e.log = l }
}

// WithWriteHook is called with the path of every file the editor writes,
// e.g. to drop cached copies.
func WithWriteHook(fn func(path string)) Option {
	return func(e *Editor) { e.onWrite = fn }
}

// New returns an Editor over store.
func New(store *workflow.Store, opts ...Option) *Editor {
	e := &Editor{store: store, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the editor's store.
func (e *Editor) Store() *workflow.Store { return e.store }

// Failure is a target a batch edit could not change.
type Failure struct {
	ToolID int    `json:"tool_id"`
	Reason string `json:"reason"`
	err    error
}

// Err returns the error that caused the failure.
func (f Failure) Err() error { return f.err }

func fail(id int, err error) Failure {
	return Failure{ToolID: id, Reason: err.Error(), err: err}
}

// Report describes what an edit changed, or would change in preview mode.
type Report struct {
	Operation string    `json:"operation"`
	Preview   bool      `json:"preview"`
	Written   bool      `json:"written"`
	Changes   []string  `json:"changes"`
	Failures  []Failure `json:"failures,omitempty"`
	Message   string    `json:"message"`

	dirty bool
}

func (r *Report) String() string { return r.Message }

// edit runs fn on a freshly parsed copy of path and writes the document back
// when fn marked the report dirty and preview is off.
func (e *Editor) edit(ctx context.Context, path, op string, preview bool, fn func(doc *workflow.Document) (*Report, error)) (*Report, error) {
	doc, err := e.store.Parse(path)
	if err != nil {
		return nil, err
	}
	rep, err := fn(doc)
	if err != nil {
		e.log.Debugw("edit rejected", "workflow", path, "operation", op, "error", err)
		return nil, err
	}
	rep.Operation = op
	rep.Preview = preview
	if rep.Changes == nil {
		rep.Changes = []string{}
	}
	if preview || !rep.dirty {
		return rep, nil
	}

	if err := e.store.Write(doc, path); err != nil {
		return nil, err
	}
	rep.Written = true
	if e.onWrite != nil {
		e.onWrite(path)
	}
	e.log.Infow("workflow updated", "workflow", path, "operation", op, "changes", len(rep.Changes), "failures", len(rep.Failures))

	if e.rec != nil {
		if err := e.rec.Record(ctx, e.store.Resolve(path), op, rep.Changes); err != nil {
			// The file is already written; a journal outage must not fail the edit.
			e.log.Warnw("journal record failed", "workflow", path, "operation", op, "error", err)
		}
	}
	return rep, nil
}

// batchMessage renders the report of a multi-target edit.
func batchMessage(preview bool, noun string, changes []string, failures []Failure) string {
	var parts []string
	if len(changes) > 0 {
		if preview {
			parts = append(parts, fmt.Sprintf("[DRY RUN] Would update %d %s:", len(changes), noun))
		} else {
			parts = append(parts, fmt.Sprintf("Updated %d %s:", len(changes), noun))
		}
		parts = append(parts, changes...)
	}
	if len(failures) > 0 {
		parts = append(parts, fmt.Sprintf("\nErrors (%d):", len(failures)))
		for _, f := range failures {
			parts = append(parts, f.Reason)
		}
	}
	return strings.Join(parts, "\n")
}

// change renders one "Tool ID n: 'old' -> 'new'" line.
func change(id int, from, to string) string {
	return fmt.Sprintf("Tool ID %d: '%s' -> '%s'", id, from, to)
}
