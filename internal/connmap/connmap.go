// Package connmap loads connection rewrite tables: which connection ids to
// replace, with what, and how to relabel annotations that mention them.
//
// Two file formats are accepted. JSON:
//
//	{"connections": {"CONN_OLD": {"new_id": "CONN_NEW", "old_label": "Legacy", "new_label": "Cloud", "label": "Warehouse"}}}
//
// and HCL (selected by the .hcl extension):
//
//	connection "CONN_OLD" {
//	  new_id    = "CONN_NEW"
//	  old_label = "Legacy"
//	  new_label = "Cloud"
//	  label     = "Warehouse"
//	}
package connmap

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// Entry describes what happens to one connection id.
type Entry struct {
	// NewID replaces the connection id. Entries without one only carry a label.
	NewID string
	// OldLabel is replaced by NewLabel inside annotations when OldLabel is
	// non-empty and NewLabel is present. An empty NewLabel strips OldLabel.
	OldLabel string
	NewLabel *string
	// Label is a human alias shown in summaries.
	Label string
}

// Mapping is keyed by the current connection id.
type Mapping map[string]Entry

// IDs returns the mapped connection ids in sorted order.
func (m Mapping) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Aliases returns connection id -> label for entries that have a label.
func (m Mapping) Aliases() map[string]string {
	out := make(map[string]string)
	for id, e := range m {
		if e.Label != "" {
			out[id] = e.Label
		}
	}
	return out
}

// Reader is the part of workflow.Store Load needs.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// Load reads the mapping at path. A missing file is workflow.ErrNotFound and
// a file that does not parse is workflow.ErrFormat.
func Load(r Reader, path string) (Mapping, error) {
	data, err := r.ReadFile(path)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return nil, workflow.Errorf(workflow.ErrNotFound, "Config file not found: %s", path)
		}
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return ParseHCL(filepath.Base(path), data)
	}
	return ParseJSON(data)
}

var connectionsPath = jp.MustParseString("$.connections")

// ParseJSON decodes the JSON form. A document without a connections object
// yields an empty mapping.
func ParseJSON(data []byte) (Mapping, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, workflow.Errorf(workflow.ErrFormat, "invalid mapping JSON: %w", err)
	}
	m := Mapping{}
	found := connectionsPath.Get(doc)
	if len(found) == 0 {
		return m, nil
	}
	conns, ok := found[0].(map[string]any)
	if !ok {
		return nil, workflow.Errorf(workflow.ErrFormat, "connections must be an object, got %T", found[0])
	}
	for id, raw := range conns {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, workflow.Errorf(workflow.ErrFormat, "connection %q must be an object", id)
		}
		e := Entry{
			NewID:    text(fields["new_id"]),
			OldLabel: text(fields["old_label"]),
			Label:    text(fields["label"]),
		}
		if v, ok := fields["new_label"]; ok && v != nil {
			label := text(v)
			e.NewLabel = &label
		}
		m[id] = e
	}
	return m, nil
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return oj.JSON(v)
}

type hclFile struct {
	Connections []hclConnection `hcl:"connection,block"`
}

type hclConnection struct {
	ID       string `hcl:"id,label"`
	NewID    string `hcl:"new_id,optional"`
	OldLabel string `hcl:"old_label,optional"`
	NewLabel *string `hcl:"new_label,optional"`
	Label    string `hcl:"label,optional"`
}

// ParseHCL decodes the HCL form. filename is used in diagnostics and must
// end in .hcl.
func ParseHCL(filename string, data []byte) (Mapping, error) {
	var f hclFile
	if err := hclsimple.Decode(filename, data, nil, &f); err != nil {
		return nil, workflow.Errorf(workflow.ErrFormat, "invalid mapping HCL: %w", err)
	}
	m := Mapping{}
	for _, c := range f.Connections {
		if _, dup := m[c.ID]; dup {
			return nil, workflow.Errorf(workflow.ErrFormat, "connection %q declared more than once", c.ID)
		}
		m[c.ID] = Entry{NewID: c.NewID, OldLabel: c.OldLabel, NewLabel: c.NewLabel, Label: c.Label}
	}
	return m, nil
}
