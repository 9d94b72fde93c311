package mutate

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/sqltext"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// UpdateAnnotation replaces the annotation of one tool, creating it if absent.
func (e *Editor) UpdateAnnotation(ctx context.Context, path string, id int, text string, preview bool) (*Report, error) {
	return e.edit(ctx, path, "update_annotation", preview, func(doc *workflow.Document) (*Report, error) {
		m, err := locator.FindByID(doc, id)
		if err != nil {
			return nil, err
		}
		old := m.Node.SetAnnotation(text)

		msg := fmt.Sprintf("Updated annotation for tool %d: '%s' -> '%s'", id, old, text)
		if preview {
			msg = fmt.Sprintf("[DRY RUN] Would change annotation for tool %d: '%s' -> '%s'", id, old, text)
		}
		return &Report{Changes: []string{change(id, old, text)}, Message: msg, dirty: true}, nil
	})
}

// UpdateSQLQuery replaces the query of an input tool. The tool must have a
// FormatSpecificOptions section; the Query leaf is created inside it when
// missing. With stripComments, "--" comments are removed first.
func (e *Editor) UpdateSQLQuery(ctx context.Context, path string, id int, query string, stripComments, preview bool) (*Report, error) {
	if stripComments {
		stripped, err := sqltext.StripLineComments(ctx, query)
		if err != nil {
			return nil, err
		}
		query = stripped
	}
	return e.edit(ctx, path, "update_sql_query", preview, func(doc *workflow.Document) (*Report, error) {
		m, err := locator.FindByID(doc, id)
		if err != nil {
			return nil, err
		}
		cfg := m.Node.Configuration()
		if cfg == nil {
			return nil, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no Configuration", id)
		}
		fso := cfg.SelectElement("FormatSpecificOptions")
		if fso == nil {
			return nil, workflow.Errorf(workflow.ErrStructure, "Could not find FormatSpecificOptions in tool %d", id)
		}
		leaf := fso.SelectElement("Query")
		if leaf == nil {
			leaf = fso.CreateElement("Query")
		}
		old := leaf.Text()
		leaf.SetText(query)

		msg := fmt.Sprintf("Updated SQL query for tool %d", id)
		if preview {
			msg = fmt.Sprintf("[DRY RUN] Would update SQL query in tool %d", id)
		}
		return &Report{Changes: []string{change(id, old, query)}, Message: msg, dirty: true}, nil
	})
}

// unknownField is the SelectField entry standing for columns not listed.
const unknownField = "*Unknown"

// SelectUpdate changes one field of a Select tool. Nil members are left alone.
type SelectUpdate struct {
	Field    string
	Selected *bool
	Rename   *string
}

// UpdateSelectFields edits the SelectFields list of a Select tool. Fields
// not yet listed are added just before the *Unknown entry.
func (e *Editor) UpdateSelectFields(ctx context.Context, path string, id int, updates []SelectUpdate, preview bool) (*Report, error) {
	if len(updates) == 0 {
		return nil, workflow.Errorf(workflow.ErrInvalidArgument, "no field updates given")
	}
	return e.edit(ctx, path, "update_select_tool", preview, func(doc *workflow.Document) (*Report, error) {
		m, err := locator.FindByID(doc, id)
		if err != nil {
			return nil, err
		}
		cfg := m.Node.Configuration()
		var list *etree.Element
		if cfg != nil {
			list = cfg.SelectElement("SelectFields")
		}
		if list == nil {
			return nil, workflow.Errorf(workflow.ErrStructure, "Tool ID %d has no SelectFields configuration", id)
		}

		rep := &Report{}
		for _, u := range updates {
			if u.Field == "" {
				return nil, workflow.Errorf(workflow.ErrInvalidArgument, "field name required")
			}
			el := findSelectField(list, u.Field)
			if el == nil {
				el = etree.NewElement("SelectField")
				el.CreateAttr("field", u.Field)
				el.CreateAttr("selected", "True")
				if unknown := findSelectField(list, unknownField); unknown != nil {
					list.InsertChildAt(unknown.Index(), el)
				} else {
					list.AddChild(el)
				}
				rep.Changes = append(rep.Changes, fmt.Sprintf("Field '%s': added", u.Field))
			}
			if u.Selected != nil {
				old := el.SelectAttrValue("selected", "")
				v := workflow.ScalarText(*u.Selected)
				el.CreateAttr("selected", v)
				rep.Changes = append(rep.Changes, fmt.Sprintf("Field '%s': selected '%s' -> '%s'", u.Field, old, v))
			}
			if u.Rename != nil {
				old := el.SelectAttrValue("rename", "")
				if *u.Rename == "" {
					el.RemoveAttr("rename")
				} else {
					el.CreateAttr("rename", *u.Rename)
				}
				rep.Changes = append(rep.Changes, fmt.Sprintf("Field '%s': rename '%s' -> '%s'", u.Field, old, *u.Rename))
			}
		}

		if len(rep.Changes) == 0 {
			rep.Message = fmt.Sprintf("No changes for select tool %d", id)
			return rep, nil
		}
		header := fmt.Sprintf("Updated select tool %d:", id)
		if preview {
			header = fmt.Sprintf("[DRY RUN] Would update select tool %d:", id)
		}
		rep.Message = header + "\n" + strings.Join(rep.Changes, "\n")
		rep.dirty = true
		return rep, nil
	})
}

func findSelectField(list *etree.Element, field string) *etree.Element {
	for _, el := range list.SelectElements("SelectField") {
		if el.SelectAttrValue("field", "") == field {
			return el
		}
	}
	return nil
}
