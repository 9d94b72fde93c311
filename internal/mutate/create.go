package mutate

import (
	"context"
	"fmt"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// Create builds a new workflow and writes it to outputPath, replacing any
// existing file. In preview mode the document is built and serialized but
// nothing is written.
func (e *Editor) Create(ctx context.Context, outputPath string, tools []api.ToolSpec, edges []api.EdgeSpec, meta *api.Fields, preview bool) (*Report, error) {
	doc, err := workflow.Build(tools, edges, meta, outputPath)
	if err != nil {
		return nil, err
	}
	if preview {
		data, err := workflow.Marshal(doc)
		if err != nil {
			return nil, err
		}
		line := fmt.Sprintf("[DRY RUN] Would create workflow at %s with %d tool(s) (%d bytes)", outputPath, len(tools), len(data))
		return &Report{Operation: "create_workflow", Preview: true, Changes: []string{line}, Message: line}, nil
	}
	if err := e.store.Write(doc, outputPath); err != nil {
		return nil, err
	}
	if e.onWrite != nil {
		e.onWrite(outputPath)
	}

	line := fmt.Sprintf("Created workflow at %s with %d tool(s)", outputPath, len(tools))
	e.log.Infow("workflow created", "workflow", outputPath, "tools", len(tools), "edges", len(edges))
	if e.rec != nil {
		if err := e.rec.Record(ctx, e.store.Resolve(outputPath), "create_workflow", []string{line}); err != nil {
			e.log.Warnw("journal record failed", "workflow", outputPath, "operation", "create_workflow", "error", err)
		}
	}
	return &Report{Operation: "create_workflow", Written: true, Changes: []string{line}, Message: line}, nil
}
