package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/connmap"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/mutate"
	"github.com/agentic-research/yxflow/internal/summary"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// DefaultHistoryLimit is the number of journal entries edit_history returns
// when no limit is given.
const DefaultHistoryLimit = 20

var (
	pWorkflow = Param{Name: "workflow", Type: String, Description: "Path to the .yxmd workflow file", Required: true}
	pToolID   = Param{Name: "tool_id", Type: Integer, Description: "ToolID of the target tool", Required: true}
	pDryRun   = Param{Name: "dry_run", Type: Boolean, Description: "Report the changes without writing the file"}
	pFirstN   = Param{Name: "first_n", Type: Integer, Description: "First N rows"}
	pLastN    = Param{Name: "last_n", Type: Integer, Description: "Last N rows"}
	pSampleN  = Param{Name: "sample_n", Type: Integer, Description: "Sample N rows"}
)

func (r *Registry) register() {
	r.add(Tool{
		Name:        "summarize_workflow",
		Description: "Summarize a workflow as Markdown: tool counts, database inputs and outputs.",
		Params: []Param{
			pWorkflow,
			{Name: "mapping", Type: String, Description: "Optional connection mapping file (JSON or HCL) whose labels name connections"},
		},
		ReadOnly: true, Structured: true,
		Handler: r.summarize,
	})
	r.add(Tool{
		Name:        "find_tools",
		Description: "Find tools by id, plugin type or annotation text, nested containers included.",
		Params: []Param{
			pWorkflow,
			{Name: "tool_id", Type: Integer, Description: "Exact ToolID"},
			{Name: "plugin_type", Type: String, Description: "Plugin short name (e.g. DbFileInput) or full plugin path"},
			{Name: "annotation_pattern", Type: String, Description: "Case-insensitive text contained in the annotation"},
		},
		ReadOnly: true, Structured: true,
		Handler: r.findTools,
	})
	r.add(Tool{
		Name:        "get_row_limit",
		Description: "Read the First N, Last N and Sample N settings of a tool.",
		Params:      []Param{pWorkflow, pToolID},
		ReadOnly:    true, Structured: true,
		Handler: r.getRowLimit,
	})
	r.add(Tool{
		Name:        "create_workflow",
		Description: "Create a new workflow file from tool and connection descriptors.",
		Params: []Param{
			{Name: "output_path", Type: String, Description: "Where to write the .yxmd file", Required: true},
			{Name: "tools_config", Type: JSONText, Description: `JSON array of tools: {"tool_id", "plugin", "position": {"x", "y"}, "configuration", "annotation"}`, Required: true},
			{Name: "connections", Type: JSONText, Description: `JSON array of connections: {"origin", "destination", "origin_connection", "destination_connection"}`},
			{Name: "metadata", Type: JSONText, Description: "JSON object of workflow metadata (Name, Description, ...)"},
			pDryRun,
		},
		Handler: r.createWorkflow,
	})
	r.add(Tool{
		Name:        "update_annotation",
		Description: "Replace the annotation text of a tool.",
		Params: []Param{pWorkflow, pToolID,
			{Name: "new_annotation", Type: String, Description: "New annotation text", Required: true},
			pDryRun},
		Handler: r.updateAnnotation,
	})
	r.add(Tool{
		Name:        "update_sql_query",
		Description: "Replace the SQL query of a database input tool.",
		Params: []Param{pWorkflow, pToolID,
			{Name: "new_query", Type: String, Description: "New SQL query text", Required: true},
			{Name: "remove_comments", Type: Boolean, Description: "Strip -- line comments before storing"},
			pDryRun},
		Handler: r.updateSQLQuery,
	})
	r.add(Tool{
		Name:        "update_connection_id",
		Description: "Set the DCM connection id of a database input or output tool.",
		Params: []Param{pWorkflow, pToolID,
			{Name: "new_connection_id", Type: String, Description: "New connection id", Required: true},
			pDryRun},
		Handler: r.updateConnection,
	})
	r.add(Tool{
		Name:        "batch_update_connections",
		Description: "Set the same connection id on several tools, given explicitly or copied from a source tool.",
		Params: []Param{pWorkflow,
			{Name: "tool_ids", Type: IntegerList, Description: "ToolIDs to update", Required: true},
			{Name: "source_connection_id", Type: String, Description: "Connection id to apply"},
			{Name: "source_tool_id", Type: Integer, Description: "Tool whose connection id is copied when source_connection_id is absent"},
			pDryRun},
		Handler: r.batchUpdateConnections,
	})
	r.add(Tool{
		Name:        "update_row_limit",
		Description: "Set row-limit parameters of one tool.",
		Params:      []Param{pWorkflow, pToolID, pFirstN, pLastN, pSampleN, pDryRun},
		Handler:     r.updateRowLimit,
	})
	r.add(Tool{
		Name:        "batch_update_row_limits",
		Description: "Set row-limit parameters on a list of tools or on every tool of a plugin type.",
		Params: []Param{pWorkflow,
			{Name: "tool_ids", Type: IntegerList, Description: "ToolIDs to update"},
			{Name: "plugin_type", Type: String, Description: "Update every tool of this type when tool_ids is absent (e.g. Sample)"},
			pFirstN, pLastN, pSampleN, pDryRun},
		Handler: r.batchUpdateRowLimits,
	})
	r.add(Tool{
		Name:        "rewrite_connections",
		Description: "Rewrite connection ids across the whole workflow from a mapping file.",
		Params: []Param{pWorkflow,
			{Name: "config", Type: String, Description: "Mapping file (JSON with a connections object, or HCL connection blocks)", Required: true},
			pDryRun},
		Handler: r.rewriteConnections,
	})
	r.add(Tool{
		Name:        "update_select_tool",
		Description: "Select, deselect or rename fields of a Select tool.",
		Params: []Param{pWorkflow, pToolID,
			{Name: "field_updates", Type: JSONText, Description: `JSON object: {"field": {"selected": true, "rename": "new_name"}}`, Required: true},
			pDryRun},
		Handler: r.updateSelectTool,
	})
	if r.hist != nil {
		r.add(Tool{
			Name:        "edit_history",
			Description: "List recorded edits, newest first.",
			Params: []Param{
				{Name: "workflow", Type: String, Description: "Only edits of this workflow"},
				{Name: "limit", Type: Integer, Description: "Maximum number of entries"},
			},
			ReadOnly: true, Structured: true,
			Handler: r.editHistory,
		})
	}
}

// target reads the workflow and tool_id arguments.
func target(args Args) (string, int, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return "", 0, err
	}
	id, err := args.RequiredInt("tool_id")
	if err != nil {
		return "", 0, err
	}
	return path, id, nil
}

func (r *Registry) summarize(_ context.Context, args Args) (*Result, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return nil, err
	}
	mappingPath, err := args.String("mapping")
	if err != nil {
		return nil, err
	}
	doc, err := r.loc.Document(path)
	if err != nil {
		return nil, err
	}
	var aliases map[string]string
	if mappingPath != "" {
		m, err := connmap.Load(r.ed.Store(), mappingPath)
		switch {
		case errors.Is(err, workflow.ErrNotFound):
			// A missing alias file only loses the labels.
			r.log.Debugw("mapping file not found, summarizing without aliases", "mapping", mappingPath)
		case err != nil:
			return nil, err
		default:
			aliases = m.Aliases()
		}
	}
	s := summary.Build(doc, filepath.Base(path), aliases)
	return &Result{Text: s.Markdown(), Data: s}, nil
}

func (r *Registry) findTools(_ context.Context, args Args) (*Result, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return nil, err
	}
	var c locator.Criteria
	if c.ID, err = args.Int("tool_id"); err != nil {
		return nil, err
	}
	if c.Plugin, err = args.String("plugin_type"); err != nil {
		return nil, err
	}
	if c.Annotation, err = args.String("annotation_pattern"); err != nil {
		return nil, err
	}
	res, err := r.loc.Locate(path, c)
	if err != nil {
		return nil, err
	}
	return structured(res), nil
}

func (r *Registry) getRowLimit(_ context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	rl, err := r.ed.RowLimit(path, id)
	if err != nil {
		return nil, err
	}
	return structured(rl), nil
}

func (r *Registry) createWorkflow(ctx context.Context, args Args) (*Result, error) {
	out, err := args.RequiredString("output_path")
	if err != nil {
		return nil, err
	}
	raw, err := args.JSON("tools_config")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, workflow.Errorf(workflow.ErrInvalidArgument, "missing required argument %q", "tools_config")
	}
	specs, err := workflow.DecodeToolSpecs(raw)
	if err != nil {
		return nil, err
	}

	var edges []api.EdgeSpec
	if raw, err = args.JSON("connections"); err != nil {
		return nil, err
	} else if raw != nil {
		if edges, err = workflow.DecodeEdgeSpecs(raw); err != nil {
			return nil, err
		}
	}

	var meta *api.Fields
	if raw, err = args.JSON("metadata"); err != nil {
		return nil, err
	} else if raw != nil {
		if meta, err = workflow.DecodeFields(raw); err != nil {
			return nil, err
		}
	}

	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.Create(ctx, out, specs, edges, meta, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) updateAnnotation(ctx context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	text, err := args.String("new_annotation")
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.UpdateAnnotation(ctx, path, id, text, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) updateSQLQuery(ctx context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	query, err := args.RequiredString("new_query")
	if err != nil {
		return nil, err
	}
	strip, err := args.Bool("remove_comments", false)
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.UpdateSQLQuery(ctx, path, id, query, strip, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) updateConnection(ctx context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	conn, err := args.RequiredString("new_connection_id")
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.UpdateConnection(ctx, path, id, conn, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) batchUpdateConnections(ctx context.Context, args Args) (*Result, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return nil, err
	}
	ids, err := args.Ints("tool_ids")
	if err != nil {
		return nil, err
	}
	var src mutate.ConnectionSource
	if src.Value, err = args.OptionalString("source_connection_id"); err != nil {
		return nil, err
	}
	if src.FromTool, err = args.Int("source_tool_id"); err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.BatchUpdateConnections(ctx, path, ids, src, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func rowLimitUpdate(args Args) (mutate.RowLimitUpdate, error) {
	var (
		u   mutate.RowLimitUpdate
		err error
	)
	if u.First, err = args.Int("first_n"); err != nil {
		return u, err
	}
	if u.Last, err = args.Int("last_n"); err != nil {
		return u, err
	}
	u.Sample, err = args.Int("sample_n")
	return u, err
}

func (r *Registry) updateRowLimit(ctx context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	u, err := rowLimitUpdate(args)
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.UpdateRowLimit(ctx, path, id, u, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) batchUpdateRowLimits(ctx context.Context, args Args) (*Result, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return nil, err
	}
	var t mutate.Targets
	if t.IDs, err = args.Ints("tool_ids"); err != nil {
		return nil, err
	}
	if t.Plugin, err = args.String("plugin_type"); err != nil {
		return nil, err
	}
	u, err := rowLimitUpdate(args)
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.BatchUpdateRowLimits(ctx, path, t, u, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) rewriteConnections(ctx context.Context, args Args) (*Result, error) {
	path, err := args.RequiredString("workflow")
	if err != nil {
		return nil, err
	}
	cfg, err := args.RequiredString("config")
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	mapping, err := connmap.Load(r.ed.Store(), cfg)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.RewriteConnections(ctx, path, mapping, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

func (r *Registry) updateSelectTool(ctx context.Context, args Args) (*Result, error) {
	path, id, err := target(args)
	if err != nil {
		return nil, err
	}
	raw, err := args.JSON("field_updates")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, workflow.Errorf(workflow.ErrInvalidArgument, "missing required argument %q", "field_updates")
	}
	updates, err := decodeSelectUpdates(raw)
	if err != nil {
		return nil, err
	}
	dry, err := args.Bool("dry_run", false)
	if err != nil {
		return nil, err
	}
	rep, err := r.ed.UpdateSelectFields(ctx, path, id, updates, dry)
	if err != nil {
		return nil, err
	}
	return report(rep), nil
}

// decodeSelectUpdates reads {"field": {"selected": bool, "rename": str}},
// keeping the fields in the order given.
func decodeSelectUpdates(raw []byte) ([]mutate.SelectUpdate, error) {
	fields, err := workflow.DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	out := make([]mutate.SelectUpdate, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		spec, ok := pair.Value.(*api.Fields)
		if !ok {
			return nil, workflow.Errorf(workflow.ErrInvalidArgument, "field %q: update must be an object", pair.Key)
		}
		u := mutate.SelectUpdate{Field: pair.Key}
		if v, ok := spec.Get("selected"); ok {
			s, _ := v.(string)
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, workflow.Errorf(workflow.ErrInvalidArgument, "field %q: selected must be a boolean", pair.Key)
			}
			u.Selected = &b
		}
		if v, ok := spec.Get("rename"); ok {
			s, ok := v.(string)
			if !ok {
				return nil, workflow.Errorf(workflow.ErrInvalidArgument, "field %q: rename must be a string", pair.Key)
			}
			u.Rename = &s
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *Registry) editHistory(ctx context.Context, args Args) (*Result, error) {
	path, err := args.String("workflow")
	if err != nil {
		return nil, err
	}
	if path != "" {
		path = r.ed.Store().Resolve(path)
	}
	limit, err := args.Int("limit")
	if err != nil {
		return nil, err
	}
	n := DefaultHistoryLimit
	if limit != nil && *limit > 0 {
		n = *limit
	}
	entries, err := r.hist.List(ctx, path, n)
	if err != nil {
		return nil, err
	}
	return structured(map[string]any{"edits": entries, "count": len(entries)}), nil
}
