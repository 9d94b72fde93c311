package mutate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// RowLimit is the row-limiting configuration of a tool. Absent leaves are nil.
type RowLimit struct {
	ToolID  int     `json:"tool_id"`
	FirstN  *string `json:"first_n"`
	LastN   *string `json:"last_n"`
	SampleN *string `json:"sample_n"`
	GroupBy *string `json:"group_by"`
}

// RowLimitUpdate holds the parameters to set. Nil fields are left alone.
type RowLimitUpdate struct {
	First  *int
	Last   *int
	Sample *int
}

// Empty reports whether no parameter is set.
func (u RowLimitUpdate) Empty() bool {
	return u.First == nil && u.Last == nil && u.Sample == nil
}

// rowLimitLeaf ties an update parameter to its configuration leaf and to the
// labels used in single and batch reports.
type rowLimitLeaf struct {
	tag, label, short string
	value             *int
}

func (u RowLimitUpdate) leaves() []rowLimitLeaf {
	return []rowLimitLeaf{
		{"First", "First N", "First", u.First},
		{"Last", "Last N", "Last", u.Last},
		{"N", "Sample N", "Sample", u.Sample},
	}
}

func leafText(cfg *etree.Element, tag string) *string {
	if el := cfg.SelectElement(tag); el != nil {
		s := el.Text()
		return &s
	}
	return nil
}

// RowLimit reads the row-limit leaves of one tool.
func (e *Editor) RowLimit(path string, id int) (*RowLimit, error) {
	doc, err := e.store.Parse(path)
	if err != nil {
		return nil, err
	}
	m, err := locator.FindByID(doc, id)
	if err != nil {
		return nil, err
	}
	cfg := m.Node.Configuration()
	if cfg == nil {
		return nil, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no Configuration", id)
	}
	return &RowLimit{
		ToolID:  id,
		FirstN:  leafText(cfg, "First"),
		LastN:   leafText(cfg, "Last"),
		SampleN: leafText(cfg, "N"),
		GroupBy: leafText(cfg, "GroupByField"),
	}, nil
}

type leafChange struct {
	leaf     rowLimitLeaf
	from, to string
}

// applyRowLimit creates or updates the supplied leaves under cfg.
func applyRowLimit(cfg *etree.Element, u RowLimitUpdate) []leafChange {
	var out []leafChange
	for _, l := range u.leaves() {
		if l.value == nil {
			continue
		}
		el := cfg.SelectElement(l.tag)
		old := "none"
		if el == nil {
			el = cfg.CreateElement(l.tag)
		} else {
			old = el.Text()
		}
		v := strconv.Itoa(*l.value)
		el.SetText(v)
		out = append(out, leafChange{leaf: l, from: old, to: v})
	}
	return out
}

// UpdateRowLimit sets the supplied row-limit parameters on one tool. An
// update with no parameters touches nothing, not even the file.
func (e *Editor) UpdateRowLimit(ctx context.Context, path string, id int, u RowLimitUpdate, preview bool) (*Report, error) {
	if u.Empty() {
		return &Report{Operation: "update_row_limit", Preview: preview, Changes: []string{}, Message: "No row limit updates specified"}, nil
	}
	return e.edit(ctx, path, "update_row_limit", preview, func(doc *workflow.Document) (*Report, error) {
		m, err := locator.FindByID(doc, id)
		if err != nil {
			return nil, err
		}
		cfg := m.Node.Configuration()
		if cfg == nil {
			return nil, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no Configuration element", id)
		}

		var parts []string
		for _, c := range applyRowLimit(cfg, u) {
			parts = append(parts, fmt.Sprintf("%s: %s -> %s", c.leaf.label, c.from, c.to))
		}
		line := fmt.Sprintf("Tool ID %d: %s", id, strings.Join(parts, "; "))
		msg := "Updated " + line
		if preview {
			msg = "[DRY RUN] Would update " + line
		}
		return &Report{Changes: []string{line}, Message: msg, dirty: true}, nil
	})
}

// Targets selects tools by explicit ids or, when IDs is empty, by plugin.
type Targets struct {
	IDs    []int
	Plugin string
}

// BatchUpdateRowLimits applies u to every target independently. Targets
// that are missing or lack a configuration are reported as failures.
func (e *Editor) BatchUpdateRowLimits(ctx context.Context, path string, t Targets, u RowLimitUpdate, preview bool) (*Report, error) {
	if len(t.IDs) == 0 && t.Plugin == "" {
		return nil, workflow.Errorf(workflow.ErrInvalidArgument, "Must specify either tool_ids or plugin_type")
	}
	if u.Empty() {
		return &Report{Operation: "batch_update_row_limits", Preview: preview, Changes: []string{}, Message: "No row limit updates specified"}, nil
	}

	return e.edit(ctx, path, "batch_update_row_limits", preview, func(doc *workflow.Document) (*Report, error) {
		ids := t.IDs
		if len(ids) == 0 {
			for _, m := range locator.FindAll(doc, locator.Criteria{Plugin: t.Plugin}) {
				ids = append(ids, m.ID())
			}
		}
		if len(ids) == 0 {
			return &Report{Message: "No tools found to update"}, nil
		}

		idx := locator.NewIndex(doc)
		rep := &Report{}
		for _, id := range ids {
			m, err := idx.Lookup(id)
			if err != nil {
				rep.Failures = append(rep.Failures, fail(id, err))
				continue
			}
			cfg := m.Node.Configuration()
			if cfg == nil {
				rep.Failures = append(rep.Failures, fail(id, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no Configuration", id)))
				continue
			}
			var parts []string
			for _, c := range applyRowLimit(cfg, u) {
				parts = append(parts, fmt.Sprintf("%s: %s->%s", c.leaf.short, c.from, c.to))
			}
			rep.Changes = append(rep.Changes, fmt.Sprintf("Tool %d: %s", id, strings.Join(parts, ", ")))
		}

		rep.dirty = len(rep.Changes) > 0
		rep.Message = batchMessage(preview, "tools", rep.Changes, rep.Failures)
		return rep, nil
	})
}
