package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/workflow"
	"github.com/agentic-research/yxflow/internal/workflow/workflowtest"
)

func intp(n int) *int { return &n }

func TestBuild_CreateThenParse(t *testing.T) {
	tools := []api.ToolSpec{
		{ToolID: intp(1), Plugin: "Filter", Configuration: mustFields(t, `{"Expression": "[x] > 1"}`), Annotation: "keep big"},
		{ToolID: intp(2), Plugin: "Union"},
	}
	edges := []api.EdgeSpec{{Origin: 1, Destination: 2}}

	doc, err := workflow.Build(tools, edges, nil, "/out/flow.yxmd")
	require.NoError(t, err)

	store := workflow.NewStore(workflowtest.NewFS(t, map[string]string{"/out/.keep": ""}))
	require.NoError(t, store.Write(doc, "/out/flow.yxmd"))
	again, err := store.Parse("/out/flow.yxmd")
	require.NoError(t, err)

	nodes := again.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "AlteryxBasePluginsGui.Filter.Filter", nodes[0].Plugin())
	assert.Equal(t, "keep big", nodes[0].Annotation())
	expr, _ := nodes[0].Fields().Get("Expression")
	assert.Equal(t, "[x] > 1", expr)
	assert.Equal(t, "Union", nodes[1].ShortName())

	assert.Equal(t, []workflow.Edge{{OriginID: 1, OriginPort: "Output", DestinationID: 2, DestinationPort: "Input"}}, again.Edges())

	root := again.Root()
	assert.Equal(t, "2024.1", root.SelectAttrValue("yxmdVer", ""))
	assert.Equal(t, "T", root.SelectAttrValue("RunE2", ""))
}

func TestBuild_Defaults(t *testing.T) {
	doc, err := workflow.Build([]api.ToolSpec{{}, {Plugin: "AlteryxBasePluginsGui.Sort.Sort"}}, nil, nil, "/tmp/My Flow.yxmd")
	require.NoError(t, err)

	nodes := doc.Nodes()
	require.Len(t, nodes, 2)
	id, _ := nodes[0].ID()
	assert.Equal(t, 1, id)
	id, _ = nodes[1].ID()
	assert.Equal(t, 2, id)
	assert.Equal(t, "AlteryxBasePluginsGui.AlteryxSelect.AlteryxSelect", nodes[0].Plugin())
	assert.Equal(t, "AlteryxBasePluginsGui.Sort.Sort", nodes[1].Plugin())

	pos := nodes[1].Element().FindElement("GuiSettings/Position")
	require.NotNil(t, pos)
	assert.Equal(t, "200", pos.SelectAttrValue("x", ""))
	assert.Equal(t, "100", pos.SelectAttrValue("y", ""))

	annot := nodes[0].Element().FindElement("Properties/Annotation")
	require.NotNil(t, annot)
	assert.Equal(t, "0", annot.SelectAttrValue("DisplayMode", ""))
	assert.Equal(t, "False", annot.FindElement("Left").SelectAttrValue("value", ""))

	assert.Nil(t, doc.Root().SelectElement("Connections"))

	meta := doc.MetaInfo()
	require.NotNil(t, meta)
	assert.Equal(t, []string{"Name", "Description"}, keys(meta))
	name, _ := meta.Get("Name")
	assert.Equal(t, "My Flow", name)
	desc, _ := meta.Get("Description")
	assert.Equal(t, workflow.DefaultDescription, desc)
}

func TestBuild_MetadataOrder(t *testing.T) {
	meta := mustFields(t, `{"Author": "ops", "Description": "nightly"}`)
	doc, err := workflow.Build(nil, nil, meta, "/x/job.yxmd")
	require.NoError(t, err)

	got := doc.MetaInfo()
	assert.Equal(t, []string{"Author", "Description", "Name"}, keys(got))
	desc, _ := got.Get("Description")
	assert.Equal(t, "nightly", desc)
}

func TestBuild_DuplicateIDs(t *testing.T) {
	_, err := workflow.Build([]api.ToolSpec{{ToolID: intp(2)}, {}}, nil, nil, "/x/dup.yxmd")
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrDuplicateID)
	assert.Contains(t, err.Error(), "Tool ID 2")
}
