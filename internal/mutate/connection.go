package mutate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/internal/connmap"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// connectionLeaf returns the node's connection leaf, creating it under the
// configuration when the node has none.
func connectionLeaf(m locator.Match) (*etree.Element, error) {
	if el := m.Node.Connection(); el != nil {
		return el, nil
	}
	cfg := m.Node.Configuration()
	if cfg == nil {
		return nil, workflow.Errorf(workflow.ErrStructure, "No Configuration element found in tool %d", m.ID())
	}
	el := cfg.CreateElement("Connection")
	el.CreateAttr("DcmType", "ConnectionId")
	return el, nil
}

// UpdateConnection sets the connection id of one tool.
func (e *Editor) UpdateConnection(ctx context.Context, path string, id int, conn string, preview bool) (*Report, error) {
	return e.edit(ctx, path, "update_connection_id", preview, func(doc *workflow.Document) (*Report, error) {
		m, err := locator.FindByID(doc, id)
		if err != nil {
			return nil, err
		}
		leaf, err := connectionLeaf(m)
		if err != nil {
			return nil, err
		}
		old := leaf.Text()
		leaf.SetText(conn)

		msg := fmt.Sprintf("Updated connection ID for tool %d: '%s' -> '%s'", id, old, conn)
		if preview {
			msg = fmt.Sprintf("[DRY RUN] Would change connection for tool %d: '%s' -> '%s'", id, old, conn)
		}
		return &Report{Changes: []string{change(id, old, conn)}, Message: msg, dirty: true}, nil
	})
}

// ConnectionSource names the connection a batch update applies: an explicit
// value, or the connection of another tool.
type ConnectionSource struct {
	Value    *string
	FromTool *int
}

// BatchUpdateConnections sets the same connection id on every tool in ids.
// Missing targets are reported as failures and do not stop the batch.
func (e *Editor) BatchUpdateConnections(ctx context.Context, path string, ids []int, src ConnectionSource, preview bool) (*Report, error) {
	return e.edit(ctx, path, "batch_update_connections", preview, func(doc *workflow.Document) (*Report, error) {
		idx := locator.NewIndex(doc)

		var value string
		switch {
		case src.Value != nil:
			value = *src.Value
		case src.FromTool != nil:
			m, err := idx.Lookup(*src.FromTool)
			if errors.Is(err, workflow.ErrDuplicateID) {
				return nil, err
			}
			if err != nil {
				return nil, workflow.Errorf(workflow.ErrNotFound, "Source Tool ID %d not found", *src.FromTool)
			}
			leaf := m.Node.Connection()
			if leaf == nil {
				return nil, workflow.Errorf(workflow.ErrStructure, "Source Tool ID %d has no connection", *src.FromTool)
			}
			value = leaf.Text()
		default:
			return nil, workflow.Errorf(workflow.ErrInvalidArgument, "No connection ID provided and no source tool ID found")
		}

		rep := &Report{}
		for _, id := range ids {
			m, err := idx.Lookup(id)
			if err != nil {
				rep.Failures = append(rep.Failures, fail(id, err))
				continue
			}
			leaf, err := connectionLeaf(m)
			if err != nil {
				rep.Failures = append(rep.Failures, fail(id, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no Configuration element", id)))
				continue
			}
			old := leaf.Text()
			leaf.SetText(value)
			rep.Changes = append(rep.Changes, change(id, old, value))
		}

		rep.dirty = len(rep.Changes) > 0
		rep.Message = batchMessage(preview, "tools", rep.Changes, rep.Failures)
		if rep.Message == "" {
			rep.Message = "No tools found to update"
		}
		return rep, nil
	})
}

// RewriteConnections replaces every connection id that is a key of mapping,
// nested tools included. When an entry has an old label and a new one, even
// an empty one, the old label is replaced in the tool's annotation too.
func (e *Editor) RewriteConnections(ctx context.Context, path string, mapping connmap.Mapping, preview bool) (*Report, error) {
	if len(mapping) == 0 {
		// Still fail for a missing or malformed workflow.
		if _, err := e.store.Parse(path); err != nil {
			return nil, err
		}
		return &Report{Operation: "rewrite_connections", Preview: preview, Changes: []string{}, Message: "No connections mapping found in config"}, nil
	}

	return e.edit(ctx, path, "rewrite_connections", preview, func(doc *workflow.Document) (*Report, error) {
		rep := &Report{}
		locator.Walk(doc, func(m locator.Match) bool {
			leaf := m.Node.Connection()
			if leaf == nil {
				return true
			}
			old := strings.TrimSpace(leaf.Text())
			entry, ok := mapping[old]
			if !ok || entry.NewID == "" {
				return true
			}
			leaf.SetText(entry.NewID)
			line := change(m.ID(), old, entry.NewID)

			if entry.OldLabel != "" && entry.NewLabel != nil {
				if text := m.Node.Annotation(); strings.Contains(text, entry.OldLabel) {
					m.Node.SetAnnotation(strings.ReplaceAll(text, entry.OldLabel, *entry.NewLabel))
					line += fmt.Sprintf(" (annotation '%s' -> '%s')", entry.OldLabel, *entry.NewLabel)
				}
			}
			rep.Changes = append(rep.Changes, line)
			return true
		})

		switch {
		case len(rep.Changes) == 0:
			rep.Message = "No connections were updated"
		case preview:
			rep.Message = fmt.Sprintf("[DRY RUN] Would make %d changes:\n%s", len(rep.Changes), strings.Join(rep.Changes, "\n"))
		default:
			rep.Message = fmt.Sprintf("Updated %d connections:\n%s", len(rep.Changes), strings.Join(rep.Changes, "\n"))
		}
		rep.dirty = len(rep.Changes) > 0
		return rep, nil
	})
}
