// Package locator finds tools in a workflow document by id or by predicate,
// across any depth of nested containers.
package locator

import (
	"strings"

	"github.com/agentic-research/yxflow/internal/plugins"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// Match is a node together with the labels of its enclosing containers,
// outermost first.
type Match struct {
	Node          *workflow.Node
	ContainerPath []string
}

// ID returns the node's ToolID. Walk only yields nodes with a parsable id.
func (m Match) ID() int {
	id, _ := m.Node.ID()
	return id
}

type frame struct {
	node *workflow.Node
	path []string
}

// Walk visits every tool with a parsable ToolID in pre-order: a node, then
// the contents of the node if it is a container, then its next sibling.
// Nodes without a usable id are skipped but their children are still
// visited. Returning false from visit stops the walk.
func Walk(doc *workflow.Document, visit func(Match) bool) {
	var stack []frame
	push := func(nodes []*workflow.Node, path []string) {
		for i := len(nodes) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: nodes[i], path: path})
		}
	}
	push(doc.Nodes(), nil)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := top.node.ID(); ok {
			if !visit(Match{Node: top.node, ContainerPath: top.path}) {
				return
			}
		}
		if top.node.IsContainer() {
			// Full slice expression so siblings never share a backing array.
			childPath := append(top.path[:len(top.path):len(top.path)], top.node.Label())
			push(top.node.Children(), childPath)
		}
	}
}

// FindByID returns the node with the given id. It fails with
// workflow.ErrNotFound when no node has it and workflow.ErrDuplicateID when
// more than one does.
func FindByID(doc *workflow.Document, id int) (Match, error) {
	var (
		found Match
		count int
	)
	Walk(doc, func(m Match) bool {
		if m.ID() == id {
			count++
			if count == 1 {
				found = m
			}
		}
		return count < 2
	})
	switch count {
	case 0:
		return Match{}, workflow.Errorf(workflow.ErrNotFound, "Tool ID %d not found", id)
	case 1:
		return found, nil
	}
	return Match{}, workflow.Errorf(workflow.ErrDuplicateID, "Tool ID %d appears more than once", id)
}

// Criteria selects tools. Every field that is set must match.
type Criteria struct {
	ID *int
	// Plugin is a short name or full plugin path, compared by short-name suffix.
	Plugin string
	// Annotation is a case-insensitive substring.
	Annotation string
}

// Empty reports whether no criterion is set.
func (c Criteria) Empty() bool {
	return c.ID == nil && c.Plugin == "" && c.Annotation == ""
}

func (c Criteria) matches(m Match) bool {
	if c.ID != nil && m.ID() != *c.ID {
		return false
	}
	if c.Plugin != "" && !plugins.Matches(m.Node.Plugin(), c.Plugin) {
		return false
	}
	if c.Annotation != "" &&
		!strings.Contains(strings.ToLower(m.Node.Annotation()), strings.ToLower(c.Annotation)) {
		return false
	}
	return true
}

// FindAll returns every tool matching c in traversal order. Empty criteria
// match every tool.
func FindAll(doc *workflow.Document, c Criteria) []Match {
	var out []Match
	Walk(doc, func(m Match) bool {
		if c.matches(m) {
			out = append(out, m)
		}
		return true
	})
	return out
}
