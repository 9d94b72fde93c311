package workflow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/workflow"
)

func keys(f *api.Fields) []string {
	var out []string
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func TestDecodeFields_KeepsOrderAndScalarText(t *testing.T) {
	f, err := workflow.DecodeFields([]byte(`{"z": 1.50, "a": true, "m": null, "b": false, "s": "x\"y"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m", "b", "s"}, keys(f))

	v, _ := f.Get("z")
	assert.Equal(t, "1.50", v)
	v, _ = f.Get("a")
	assert.Equal(t, "True", v)
	v, _ = f.Get("m")
	assert.Equal(t, "", v)
	v, _ = f.Get("b")
	assert.Equal(t, "False", v)
	v, _ = f.Get("s")
	assert.Equal(t, `x"y`, v)
}

func TestDecodeFields_Rejects(t *testing.T) {
	for _, in := range []string{``, `[1,2]`, `"text"`, `{"a":`} {
		_, err := workflow.DecodeFields([]byte(in))
		assert.ErrorIs(t, err, workflow.ErrFormat, "input %q", in)
	}
}

func TestFieldsFromValue(t *testing.T) {
	f, err := workflow.FieldsFromValue(nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	// Go maps are unordered, so keys come back sorted.
	f, err = workflow.FieldsFromValue(map[string]any{"b": "1", "a": map[string]any{"x": true}, "c": []any{json.Number("2"), "3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys(f))
	inner, _ := f.Get("a")
	x, _ := inner.(*api.Fields).Get("x")
	assert.Equal(t, "True", x)
	list, _ := f.Get("c")
	assert.Equal(t, []any{"2", "3"}, list)

	// JSON text keeps document order.
	f, err = workflow.FieldsFromValue(`{"b": 1, "a": 2}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys(f))

	_, err = workflow.FieldsFromValue(42.0)
	assert.ErrorIs(t, err, workflow.ErrFormat)
}

func TestDecodeToolSpecs(t *testing.T) {
	specs, err := workflow.DecodeToolSpecs([]byte(`[
		{"tool_id": 1, "plugin": "Filter", "configuration": {"Expression": "[x] > 1", "Mode": "Custom"}},
		{"tool_id": "2", "plugin": "Union", "annotation": "merge", "position": {"x": 300}},
		{}
	]`))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	require.NotNil(t, specs[0].ToolID)
	assert.Equal(t, 1, *specs[0].ToolID)
	assert.Equal(t, "Filter", specs[0].Plugin)
	assert.Equal(t, []string{"Expression", "Mode"}, keys(specs[0].Configuration))

	assert.Equal(t, 2, *specs[1].ToolID)
	assert.Equal(t, "merge", specs[1].Annotation)
	assert.Equal(t, &api.Position{X: 300, Y: 100}, specs[1].Position)

	assert.Nil(t, specs[2].ToolID)
	assert.Nil(t, specs[2].Position)
	assert.Nil(t, specs[2].Configuration)
}

func TestDecodeToolSpecs_Rejects(t *testing.T) {
	for _, in := range []string{`{}`, `[1]`, `[{"tool_id": 1.5}]`, `[{"tool_id": "one"}]`, `not json`} {
		_, err := workflow.DecodeToolSpecs([]byte(in))
		assert.ErrorIs(t, err, workflow.ErrFormat, "input %q", in)
	}
}

func TestDecodeEdgeSpecs(t *testing.T) {
	edges, err := workflow.DecodeEdgeSpecs([]byte(`[
		{"origin": 1, "destination": 2},
		{"origin": 2, "destination": 3, "origin_connection": "True", "destination_port": "Left"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []api.EdgeSpec{
		{Origin: 1, Destination: 2},
		{Origin: 2, Destination: 3, OriginPort: "True", DestinationPort: "Left"},
	}, edges)

	_, err = workflow.DecodeEdgeSpecs([]byte(`[{"origin": 1}]`))
	assert.ErrorIs(t, err, workflow.ErrFormat)
}
