package locator

import "github.com/agentic-research/yxflow/api"

// Tool is the caller-facing record of one located tool.
type Tool struct {
	ToolID        int         `json:"tool_id"`
	Plugin        string      `json:"plugin"`
	Annotation    string      `json:"annotation"`
	ContainerPath []string    `json:"container_path"`
	Configuration *api.Fields `json:"configuration"`
}

// Result is the answer to a locate query.
type Result struct {
	Tools []Tool `json:"tools"`
	Count int    `json:"count"`
}

// Describe renders m for callers.
func Describe(m Match) Tool {
	path := m.ContainerPath
	if path == nil {
		path = []string{}
	}
	return Tool{
		ToolID:        m.ID(),
		Plugin:        m.Node.Plugin(),
		Annotation:    m.Node.Annotation(),
		ContainerPath: path,
		Configuration: m.Node.Fields(),
	}
}
