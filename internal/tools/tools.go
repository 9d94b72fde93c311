// Package tools is the transport-neutral catalogue of every caller-facing
// workflow operation. The MCP server, the HTTP API and the CLI all dispatch
// through a Registry.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/yxflow/internal/journal"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/mutate"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// ParamType is the shape of a parameter value.
type ParamType string

const (
	String      ParamType = "string"
	Integer     ParamType = "integer"
	Boolean     ParamType = "boolean"
	IntegerList ParamType = "integer_list"
	// JSONText is an object or array passed as JSON text.
	JSONText ParamType = "json"
)

// Param describes one parameter of a tool.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required,omitempty"`
}

// Handler runs a tool.
type Handler func(ctx context.Context, args Args) (*Result, error)

// Tool is one operation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	// ReadOnly tools never write files.
	ReadOnly bool `json:"read_only"`
	// Structured tools answer with a JSON payload, failures included.
	Structured bool    `json:"structured"`
	Handler    Handler `json:"-"`
}

// Result is the answer of a call: Text for humans and Data for machines.
type Result struct {
	Text    string `json:"text"`
	Data    any    `json:"data,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// History lists journaled edits.
type History interface {
	List(ctx context.Context, workflowPath string, limit int) ([]journal.Entry, error)
}

// Registry holds the tools and what they operate on.
type Registry struct {
	loc  *locator.Locator
	ed   *mutate.Editor
	hist History
	log  *zap.SugaredLogger

	tools  []Tool
	byName map[string]int
}

// Option configures a Registry.
type Option func(*Registry)

// WithHistory adds the edit_history tool backed by h.
func WithHistory(h History) Option {
	return func(r *Registry) { r.hist = h }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) { r.log = l }
}

// New returns a Registry with every tool registered. Reads go through loc
// and edits through ed.
func New(loc *locator.Locator, ed *mutate.Editor, opts ...Option) *Registry {
	r := &Registry{loc: loc, ed: ed, log: zap.NewNop().Sugar(), byName: make(map[string]int)}
	for _, opt := range opts {
		opt(r)
	}
	r.register()
	return r
}

func (r *Registry) add(t Tool) {
	r.byName[t.Name] = len(r.tools)
	r.tools = append(r.tools, t)
}

// Tools returns every registered tool in registration order.
func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

// Lookup returns the tool called name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Call runs the tool called name. A failed call returns the error; Failure
// renders it for callers.
func (r *Registry) Call(ctx context.Context, name string, args Args) (*Result, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, workflow.Errorf(workflow.ErrNotFound, "Unknown tool: %s", name)
	}
	if args == nil {
		args = Args{}
	}
	start := time.Now()
	res, err := t.Handler(ctx, args)
	if err != nil {
		r.log.Warnw("tool call failed", "tool", name, "kind", workflow.Kind(err), "error", err)
		return nil, err
	}
	r.log.Debugw("tool call", "tool", name, "elapsed", time.Since(start))
	return res, nil
}

// Failure renders err as the result callers see: the message alone, or for
// structured tools a JSON payload carrying it.
func (r *Registry) Failure(name string, err error) *Result {
	res := &Result{Text: err.Error(), IsError: true}
	if t, ok := r.Lookup(name); ok && t.Structured {
		payload := map[string]string{"error": err.Error()}
		if kind := workflow.Kind(err); kind != "" {
			payload["kind"] = kind
		}
		res.Data = payload
		res.Text = indentJSON(payload)
	}
	return res
}

// structured wraps v as a result whose text is v's indented JSON.
func structured(v any) *Result {
	return &Result{Text: indentJSON(v), Data: v}
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func report(rep *mutate.Report) *Result {
	return &Result{Text: rep.Message, Data: rep}
}
