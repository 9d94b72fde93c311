// Package summary renders an overview of a workflow: which tools it uses and
// which databases it reads and writes.
package summary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// ToolCount is the number of tools of one short plugin name.
type ToolCount struct {
	Plugin string `json:"plugin"`
	Count  int    `json:"count"`
}

// Input is a database input tool.
type Input struct {
	ID         int    `json:"tool_id"`
	Annotation string `json:"annotation,omitempty"`
	Connection string `json:"connection,omitempty"`
	Alias      string `json:"alias,omitempty"`
	Query      string `json:"query,omitempty"`
}

// Output is a database or file output tool.
type Output struct {
	ID         int    `json:"tool_id"`
	File       string `json:"file,omitempty"`
	Connection string `json:"connection,omitempty"`
	Alias      string `json:"alias,omitempty"`
}

// Summary describes one workflow.
type Summary struct {
	Name    string      `json:"name"`
	Tools   []ToolCount `json:"tools"`
	Inputs  []Input     `json:"inputs"`
	Outputs []Output    `json:"outputs"`
	// DuplicateIDs lists ToolIDs carried by more than one node.
	DuplicateIDs []int `json:"duplicate_ids,omitempty"`
}

// Build collects the summary of doc. name is the file name shown in the
// title; aliases maps connection ids to display labels and may be nil.
func Build(doc *workflow.Document, name string, aliases map[string]string) *Summary {
	s := &Summary{Name: name, Tools: []ToolCount{}, Inputs: []Input{}, Outputs: []Output{}}
	counts := make(map[string]int)

	locator.Walk(doc, func(m locator.Match) bool {
		node := m.Node
		short := node.ShortName()
		if _, seen := counts[short]; !seen {
			s.Tools = append(s.Tools, ToolCount{Plugin: short})
		}
		counts[short]++

		plugin := node.Plugin()
		switch {
		case strings.Contains(plugin, "DbFileInput"):
			in := Input{
				ID:         m.ID(),
				Annotation: strings.TrimSpace(node.Annotation()),
				Connection: node.ConnectionID(),
			}
			if cfg := node.Configuration(); cfg != nil {
				if q := cfg.FindElement("FormatSpecificOptions/Query"); q != nil {
					in.Query = strings.TrimSpace(q.Text())
				}
			}
			in.Alias = aliases[in.Connection]
			s.Inputs = append(s.Inputs, in)
		case strings.Contains(plugin, "DbFileOutput"):
			out := Output{ID: m.ID(), Connection: node.ConnectionID()}
			if cfg := node.Configuration(); cfg != nil {
				if f := cfg.SelectElement("File"); f != nil {
					out.File = strings.TrimSpace(f.Text())
				}
			}
			out.Alias = aliases[out.Connection]
			s.Outputs = append(s.Outputs, out)
		}
		return true
	})

	for i := range s.Tools {
		s.Tools[i].Count = counts[s.Tools[i].Plugin]
	}
	// Ties keep first-appearance order.
	sort.SliceStable(s.Tools, func(i, j int) bool { return s.Tools[i].Count > s.Tools[j].Count })
	s.DuplicateIDs = locator.NewIndex(doc).Duplicates()
	return s
}

// Markdown renders the summary as a Markdown report.
func (s *Summary) Markdown() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Workflow Summary: %s", s.Name)
	line("")
	line("## Tool Statistics")
	for _, tc := range s.Tools {
		line("- **%s**: %d", tc.Plugin, tc.Count)
	}
	line("")

	if len(s.Inputs) > 0 {
		line("## Database Inputs")
		for _, in := range s.Inputs {
			line("### Tool %d", in.ID)
			if in.Annotation != "" {
				line("**Annotation**: %s", in.Annotation)
			}
			if in.Connection != "" {
				line("**Connection**: `%s`%s", in.Connection, aliasSuffix(in.Alias))
			}
			if in.Query != "" {
				line("```sql")
				line("%s", in.Query)
				line("```")
			}
			line("")
		}
	}

	if len(s.Outputs) > 0 {
		line("## Outputs")
		for _, out := range s.Outputs {
			target := out.File
			if target == "" {
				target = out.Connection + aliasSuffix(out.Alias)
			}
			line("- **Tool %d**: %s", out.ID, target)
		}
	}

	if len(s.DuplicateIDs) > 0 {
		ids := make([]string, len(s.DuplicateIDs))
		for i, id := range s.DuplicateIDs {
			ids[i] = strconv.Itoa(id)
		}
		if !strings.HasSuffix(b.String(), "\n\n") {
			line("")
		}
		line("## Warnings")
		line("- Duplicate Tool IDs: %s", strings.Join(ids, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func aliasSuffix(alias string) string {
	if alias == "" {
		return ""
	}
	return " (" + alias + ")"
}
