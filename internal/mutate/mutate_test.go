package mutate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/connmap"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/workflow"
	"github.com/agentic-research/yxflow/internal/workflow/workflowtest"
)

const sample = workflowtest.SamplePath

type recorded struct {
	workflow, operation string
	changes             []string
}

type fakeRecorder struct {
	calls []recorded
	err   error
}

func (r *fakeRecorder) Record(_ context.Context, wf, op string, changes []string) error {
	r.calls = append(r.calls, recorded{wf, op, changes})
	return r.err
}

func newEditor(t *testing.T) (*Editor, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	return New(workflowtest.NewStore(t), WithRecorder(rec)), rec
}

func reparse(t *testing.T, e *Editor, path string) *workflow.Document {
	t.Helper()
	doc, err := e.Store().Parse(path)
	require.NoError(t, err)
	return doc
}

func node(t *testing.T, doc *workflow.Document, id int) *workflow.Node {
	t.Helper()
	m, err := locator.FindByID(doc, id)
	require.NoError(t, err)
	return m.Node
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
func boolp(b bool) *bool    { return &b }

func TestUpdateAnnotation(t *testing.T) {
	e, rec := newEditor(t)
	ctx := context.Background()

	rep, err := e.UpdateAnnotation(ctx, sample, 2, "Active customers", false)
	require.NoError(t, err)
	assert.True(t, rep.Written)
	assert.Equal(t, []string{"Tool ID 2: 'Active only' -> 'Active customers'"}, rep.Changes)
	assert.Equal(t, "Updated annotation for tool 2: 'Active only' -> 'Active customers'", rep.String())
	assert.Equal(t, "Active customers", node(t, reparse(t, e, sample), 2).Annotation())

	// Nested tool without any annotation structure.
	_, err = e.UpdateAnnotation(ctx, sample, 7, "Sample five", false)
	require.NoError(t, err)
	assert.Equal(t, "Sample five", node(t, reparse(t, e, sample), 7).Annotation())

	require.Len(t, rec.calls, 2)
	assert.Equal(t, recorded{sample, "update_annotation", []string{"Tool ID 7: '' -> 'Sample five'"}}, rec.calls[1])
}

func TestUpdateAnnotation_Missing(t *testing.T) {
	e, rec := newEditor(t)
	before := workflowtest.Hash(t, e.Store().FS(), sample)

	_, err := e.UpdateAnnotation(context.Background(), sample, 999, "x", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.Equal(t, "Tool ID 999 not found", err.Error())
	assert.Equal(t, before, workflowtest.Hash(t, e.Store().FS(), sample))
	assert.Empty(t, rec.calls)

	_, err = e.UpdateAnnotation(context.Background(), "/work/nope.yxmd", 1, "x", false)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestPreviewNeverWrites(t *testing.T) {
	ctx := context.Background()
	mapping := connmap.Mapping{"CONN_SALES": {NewID: "CONN_X"}}

	cases := map[string]func(e *Editor) (*Report, error){
		"annotation": func(e *Editor) (*Report, error) { return e.UpdateAnnotation(ctx, sample, 1, "new", true) },
		"sql": func(e *Editor) (*Report, error) {
			return e.UpdateSQLQuery(ctx, sample, 1, "SELECT 1", false, true)
		},
		"connection": func(e *Editor) (*Report, error) { return e.UpdateConnection(ctx, sample, 10, "CONN_X", true) },
		"batch connection": func(e *Editor) (*Report, error) {
			return e.BatchUpdateConnections(ctx, sample, []int{5, 999, 7}, ConnectionSource{Value: strp("CONN_X")}, true)
		},
		"row limit": func(e *Editor) (*Report, error) {
			return e.UpdateRowLimit(ctx, sample, 5, RowLimitUpdate{First: intp(1)}, true)
		},
		"batch row limit": func(e *Editor) (*Report, error) {
			return e.BatchUpdateRowLimits(ctx, sample, Targets{Plugin: "Sample"}, RowLimitUpdate{Last: intp(2)}, true)
		},
		"rewrite": func(e *Editor) (*Report, error) { return e.RewriteConnections(ctx, sample, mapping, true) },
		"select": func(e *Editor) (*Report, error) {
			return e.UpdateSelectFields(ctx, sample, 11, []SelectUpdate{{Field: "Secret", Selected: boolp(false)}}, true)
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			e, rec := newEditor(t)
			before := workflowtest.Hash(t, e.Store().FS(), sample)

			rep, err := run(e)
			require.NoError(t, err)
			assert.True(t, rep.Preview)
			assert.False(t, rep.Written)
			assert.NotEmpty(t, rep.Changes)
			assert.True(t, strings.HasPrefix(rep.Message, "[DRY RUN]"), rep.Message)

			assert.Equal(t, before, workflowtest.Hash(t, e.Store().FS(), sample))
			assert.Empty(t, rec.calls)
		})
	}
}

func TestUpdateSQLQuery(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	rep, err := e.UpdateSQLQuery(ctx, sample, 1, "SELECT id -- key\nFROM customers", false, false)
	require.NoError(t, err)
	assert.Equal(t, "Updated SQL query for tool 1", rep.Message)
	q := node(t, reparse(t, e, sample), 1).Configuration().FindElement("FormatSpecificOptions/Query")
	assert.Equal(t, "SELECT id -- key\nFROM customers", q.Text())

	_, err = e.UpdateSQLQuery(ctx, sample, 4, "SELECT id -- key\nFROM orders", true, false)
	require.NoError(t, err)
	q = node(t, reparse(t, e, sample), 4).Configuration().FindElement("FormatSpecificOptions/Query")
	assert.Equal(t, "SELECT id\nFROM orders", q.Text())

	_, err = e.UpdateSQLQuery(ctx, sample, 2, "SELECT 1", false, false)
	assert.ErrorIs(t, err, workflow.ErrStructure)
	assert.EqualError(t, err, "Could not find FormatSpecificOptions in tool 2")

	_, err = e.UpdateSQLQuery(ctx, sample, 12, "SELECT 1", false, false)
	assert.ErrorIs(t, err, workflow.ErrStructure)
}

func TestUpdateSQLQuery_CreatesQueryLeaf(t *testing.T) {
	const path = "/w/noquery.yxmd"
	store := workflow.NewStore(workflowtest.NewFS(t, map[string]string{path: `<AlteryxDocument><Nodes>
<Node ToolID="1"><GuiSettings Plugin="AlteryxBasePluginsGui.DbFileInput.DbFileInput"/>
<Properties><Configuration><FormatSpecificOptions><PreSQL/></FormatSpecificOptions></Configuration></Properties></Node>
</Nodes></AlteryxDocument>`}))
	e := New(store)

	rep, err := e.UpdateSQLQuery(context.Background(), path, 1, "SELECT 1", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tool ID 1: '' -> 'SELECT 1'"}, rep.Changes)

	fso := node(t, reparse(t, e, path), 1).Configuration().SelectElement("FormatSpecificOptions")
	children := fso.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "PreSQL", children[0].Tag)
	assert.Equal(t, "SELECT 1", children[1].Text())
}

func TestUpdateConnection(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	t.Run("format specific options location", func(t *testing.T) {
		rep, err := e.UpdateConnection(ctx, sample, 1, "CONN_NEW", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Tool ID 1: 'CONN_SALES' -> 'CONN_NEW'"}, rep.Changes)
		n := node(t, reparse(t, e, sample), 1)
		assert.Equal(t, "FormatSpecificOptions", n.Connection().Parent().Tag)
		assert.Nil(t, n.Configuration().SelectElement("Connection"))
	})

	t.Run("configuration location", func(t *testing.T) {
		_, err := e.UpdateConnection(ctx, sample, 4, "CONN_NEW", false)
		require.NoError(t, err)
		assert.Equal(t, "CONN_NEW", node(t, reparse(t, e, sample), 4).ConnectionID())
	})

	t.Run("created when absent", func(t *testing.T) {
		rep, err := e.UpdateConnection(ctx, sample, 10, "CONN_NEW", false)
		require.NoError(t, err)
		assert.Equal(t, "Updated connection ID for tool 10: '' -> 'CONN_NEW'", rep.Message)
		leaf := node(t, reparse(t, e, sample), 10).Connection()
		require.NotNil(t, leaf)
		assert.Equal(t, "ConnectionId", leaf.SelectAttrValue("DcmType", ""))
		assert.Equal(t, "Configuration", leaf.Parent().Tag)
	})

	t.Run("no configuration", func(t *testing.T) {
		_, err := e.UpdateConnection(ctx, sample, 12, "CONN_NEW", false)
		assert.ErrorIs(t, err, workflow.ErrStructure)
	})
}

func TestBatchUpdateConnections_PartialFailure(t *testing.T) {
	e, rec := newEditor(t)

	rep, err := e.BatchUpdateConnections(context.Background(), sample, []int{5, 999, 7}, ConnectionSource{Value: strp("CONN_NEW")}, false)
	require.NoError(t, err)
	assert.Len(t, rep.Changes, 2)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, 999, rep.Failures[0].ToolID)
	assert.ErrorIs(t, rep.Failures[0].Err(), workflow.ErrNotFound)
	assert.Equal(t, "Updated 2 tools:\n"+
		"Tool ID 5: '' -> 'CONN_NEW'\n"+
		"Tool ID 7: '' -> 'CONN_NEW'\n"+
		"\nErrors (1):\n"+
		"Tool ID 999 not found", rep.Message)

	doc := reparse(t, e, sample)
	assert.Equal(t, "CONN_NEW", node(t, doc, 5).ConnectionID())
	assert.Equal(t, "CONN_NEW", node(t, doc, 7).ConnectionID())
	require.Len(t, rec.calls, 1)
}

func TestBatchUpdateConnections_CopyFromSourceTool(t *testing.T) {
	const path = "/w/copy.yxmd"
	conn, err := workflow.DecodeFields([]byte(`{"Connection": {"@DcmType": "ConnectionId", "_text": "CONN_A"}}`))
	require.NoError(t, err)
	doc, err := workflow.Build([]api.ToolSpec{
		{ToolID: intp(3), Plugin: "DbFileInput", Configuration: conn},
		{ToolID: intp(10), Plugin: "Formula"},
		{ToolID: intp(11), Plugin: "AlteryxSelect"},
	}, nil, nil, path)
	require.NoError(t, err)
	store := workflow.NewStore(workflowtest.NewFS(t, map[string]string{"/w/.keep": ""}))
	require.NoError(t, store.Write(doc, path))
	e := New(store)

	rep, err := e.BatchUpdateConnections(context.Background(), path, []int{10, 11}, ConnectionSource{FromTool: intp(3)}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tool ID 10: '' -> 'CONN_A'", "Tool ID 11: '' -> 'CONN_A'"}, rep.Changes)
	assert.Empty(t, rep.Failures)

	again := reparse(t, e, path)
	assert.Equal(t, "CONN_A", node(t, again, 10).ConnectionID())
	assert.Equal(t, "CONN_A", node(t, again, 11).ConnectionID())
}

func TestBatchUpdateConnections_DocumentErrors(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	_, err := e.BatchUpdateConnections(ctx, sample, []int{5}, ConnectionSource{FromTool: intp(42)}, false)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.EqualError(t, err, "Source Tool ID 42 not found")

	_, err = e.BatchUpdateConnections(ctx, sample, []int{5}, ConnectionSource{FromTool: intp(2)}, false)
	assert.ErrorIs(t, err, workflow.ErrStructure)

	_, err = e.BatchUpdateConnections(ctx, sample, []int{5}, ConnectionSource{}, false)
	assert.ErrorIs(t, err, workflow.ErrInvalidArgument)

	rep, err := e.BatchUpdateConnections(ctx, sample, nil, ConnectionSource{Value: strp("X")}, false)
	require.NoError(t, err)
	assert.Equal(t, "No tools found to update", rep.Message)
	assert.False(t, rep.Written)
}

func TestRowLimit(t *testing.T) {
	e, _ := newEditor(t)

	rl, err := e.RowLimit(sample, 5)
	require.NoError(t, err)
	require.NotNil(t, rl.FirstN)
	assert.Equal(t, "10", *rl.FirstN)
	assert.Nil(t, rl.LastN)
	assert.Nil(t, rl.SampleN)

	rl, err = e.RowLimit(sample, 7)
	require.NoError(t, err)
	assert.Equal(t, "5", *rl.SampleN)
	assert.Equal(t, "Region", *rl.GroupBy)

	_, err = e.RowLimit(sample, 12)
	assert.ErrorIs(t, err, workflow.ErrStructure)
	_, err = e.RowLimit(sample, 999)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestUpdateRowLimit(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	rep, err := e.UpdateRowLimit(ctx, sample, 5, RowLimitUpdate{First: intp(20), Sample: intp(3)}, false)
	require.NoError(t, err)
	assert.Equal(t, "Updated Tool ID 5: First N: 10 -> 20; Sample N: none -> 3", rep.Message)

	cfg := node(t, reparse(t, e, sample), 5).Configuration()
	assert.Equal(t, "20", cfg.SelectElement("First").Text())
	assert.Equal(t, "3", cfg.SelectElement("N").Text())
	assert.Nil(t, cfg.SelectElement("Last"))
	assert.Equal(t, "First", cfg.SelectElement("Mode").Text())

	// Nothing to do never touches the file, so even a missing one is fine.
	rep, err = e.UpdateRowLimit(ctx, "/work/absent.yxmd", 5, RowLimitUpdate{}, false)
	require.NoError(t, err)
	assert.Equal(t, "No row limit updates specified", rep.Message)
	assert.False(t, rep.Written)
}

func TestBatchUpdateRowLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("by plugin across containers", func(t *testing.T) {
		e, _ := newEditor(t)
		rep, err := e.BatchUpdateRowLimits(ctx, sample, Targets{Plugin: "Sample"}, RowLimitUpdate{First: intp(1)}, false)
		require.NoError(t, err)
		assert.Equal(t, "Updated 2 tools:\nTool 5: First: 10->1\nTool 7: First: none->1", rep.Message)
		assert.Equal(t, "1", node(t, reparse(t, e, sample), 7).Configuration().SelectElement("First").Text())
	})

	t.Run("by ids with failures", func(t *testing.T) {
		e, _ := newEditor(t)
		rep, err := e.BatchUpdateRowLimits(ctx, sample, Targets{IDs: []int{5, 999, 12}}, RowLimitUpdate{Last: intp(4)}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Tool 5: Last: none->4"}, rep.Changes)
		require.Len(t, rep.Failures, 2)
		assert.ErrorIs(t, rep.Failures[0].Err(), workflow.ErrNotFound)
		assert.ErrorIs(t, rep.Failures[1].Err(), workflow.ErrStructure)
		assert.True(t, rep.Written)
	})

	t.Run("zero targets", func(t *testing.T) {
		e, _ := newEditor(t)
		before := workflowtest.Hash(t, e.Store().FS(), sample)
		rep, err := e.BatchUpdateRowLimits(ctx, sample, Targets{Plugin: "Join"}, RowLimitUpdate{First: intp(1)}, false)
		require.NoError(t, err)
		assert.Equal(t, "No tools found to update", rep.Message)
		assert.Equal(t, before, workflowtest.Hash(t, e.Store().FS(), sample))
	})

	t.Run("no selector", func(t *testing.T) {
		e, _ := newEditor(t)
		_, err := e.BatchUpdateRowLimits(ctx, sample, Targets{}, RowLimitUpdate{First: intp(1)}, false)
		assert.ErrorIs(t, err, workflow.ErrInvalidArgument)
	})
}

func TestRewriteConnections(t *testing.T) {
	e, rec := newEditor(t)
	mapping := connmap.Mapping{
		"CONN_LEGACY": {NewID: "CONN_CLOUD", OldLabel: "Legacy DB", NewLabel: strp("Cloud DB")},
		"CONN_SALES":  {NewID: "CONN_SALES_V2"},
	}

	rep, err := e.RewriteConnections(context.Background(), sample, mapping, false)
	require.NoError(t, err)
	assert.Equal(t, "Updated 3 connections:\n"+
		"Tool ID 1: 'CONN_SALES' -> 'CONN_SALES_V2'\n"+
		"Tool ID 4: 'CONN_LEGACY' -> 'CONN_CLOUD' (annotation 'Legacy DB' -> 'Cloud DB')\n"+
		"Tool ID 9: 'CONN_SALES' -> 'CONN_SALES_V2'", rep.Message)

	doc := reparse(t, e, sample)
	assert.Equal(t, "CONN_CLOUD", node(t, doc, 4).ConnectionID())
	assert.Equal(t, "Orders (Cloud DB)", node(t, doc, 4).Annotation())
	assert.Equal(t, "Write to Sales DB", node(t, doc, 9).Annotation())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "rewrite_connections", rec.calls[0].operation)
}

func TestRewriteConnections_EmptyNewLabelStripsOldLabel(t *testing.T) {
	e, _ := newEditor(t)
	mapping := connmap.Mapping{
		"CONN_LEGACY": {NewID: "CONN_CLOUD", OldLabel: " (Legacy DB)", NewLabel: strp("")},
	}

	rep, err := e.RewriteConnections(context.Background(), sample, mapping, false)
	require.NoError(t, err)
	assert.Equal(t, "Updated 1 connections:\n"+
		"Tool ID 4: 'CONN_LEGACY' -> 'CONN_CLOUD' (annotation ' (Legacy DB)' -> '')", rep.Message)
	assert.Equal(t, "Orders", node(t, reparse(t, e, sample), 4).Annotation())
}

func TestRewriteConnections_NoMatches(t *testing.T) {
	e, rec := newEditor(t)
	ctx := context.Background()
	before := workflowtest.Hash(t, e.Store().FS(), sample)

	rep, err := e.RewriteConnections(ctx, sample, connmap.Mapping{"CONN_OTHER": {NewID: "X"}}, false)
	require.NoError(t, err)
	assert.Equal(t, "No connections were updated", rep.Message)

	rep, err = e.RewriteConnections(ctx, sample, connmap.Mapping{}, false)
	require.NoError(t, err)
	assert.Equal(t, "No connections mapping found in config", rep.Message)

	assert.Equal(t, before, workflowtest.Hash(t, e.Store().FS(), sample))
	assert.Empty(t, rec.calls)

	_, err = e.RewriteConnections(ctx, "/work/nope.yxmd", connmap.Mapping{}, false)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestUpdateSelectFields(t *testing.T) {
	e, _ := newEditor(t)

	rep, err := e.UpdateSelectFields(context.Background(), sample, 11, []SelectUpdate{
		{Field: "Secret", Selected: boolp(false)},
		{Field: "Name", Rename: strp("FullName")},
		{Field: "Region"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "Updated select tool 11:\n"+
		"Field 'Secret': selected 'True' -> 'False'\n"+
		"Field 'Name': rename '' -> 'FullName'\n"+
		"Field 'Region': added", rep.Message)

	list := node(t, reparse(t, e, sample), 11).Configuration().SelectElement("SelectFields")
	var fields []string
	for _, el := range list.SelectElements("SelectField") {
		fields = append(fields, el.SelectAttrValue("field", ""))
	}
	assert.Equal(t, []string{"Name", "Secret", "Region", "*Unknown"}, fields)
	assert.Equal(t, "False", findSelectField(list, "Secret").SelectAttrValue("selected", ""))
	assert.Equal(t, "FullName", findSelectField(list, "Name").SelectAttrValue("rename", ""))
}

func TestUpdateSelectFields_Errors(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	_, err := e.UpdateSelectFields(ctx, sample, 2, []SelectUpdate{{Field: "a", Selected: boolp(true)}}, false)
	assert.ErrorIs(t, err, workflow.ErrStructure)

	_, err = e.UpdateSelectFields(ctx, sample, 11, nil, false)
	assert.ErrorIs(t, err, workflow.ErrInvalidArgument)
}

func TestCreateThenFind(t *testing.T) {
	rec := &fakeRecorder{}
	var written []string
	store := workflow.NewStore(workflowtest.NewFS(t, map[string]string{"/out/.keep": ""}))
	e := New(store, WithRecorder(rec), WithWriteHook(func(p string) { written = append(written, p) }))

	rep, err := e.Create(context.Background(), "/out/new.yxmd",
		[]api.ToolSpec{{ToolID: intp(1), Plugin: "Filter"}, {ToolID: intp(2), Plugin: "Union"}},
		[]api.EdgeSpec{{Origin: 1, Destination: 2}}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Created workflow at /out/new.yxmd with 2 tool(s)", rep.Message)
	assert.Equal(t, []string{"/out/new.yxmd"}, written)
	require.Len(t, rec.calls, 1)

	doc := reparse(t, e, "/out/new.yxmd")
	assert.True(t, strings.HasSuffix(node(t, doc, 1).Plugin(), "Filter"))
	assert.Len(t, doc.Edges(), 1)

	_, err = e.Create(context.Background(), "/out/dup.yxmd", []api.ToolSpec{{ToolID: intp(1)}, {ToolID: intp(1)}}, nil, nil, false)
	assert.ErrorIs(t, err, workflow.ErrDuplicateID)
}

func TestCreate_Preview(t *testing.T) {
	rec := &fakeRecorder{}
	var written []string
	store := workflow.NewStore(workflowtest.NewFS(t, map[string]string{"/out/.keep": ""}))
	e := New(store, WithRecorder(rec), WithWriteHook(func(p string) { written = append(written, p) }))

	rep, err := e.Create(context.Background(), "/out/new.yxmd", []api.ToolSpec{{Plugin: "Filter"}}, nil, nil, true)
	require.NoError(t, err)
	assert.True(t, rep.Preview)
	assert.False(t, rep.Written)
	assert.True(t, strings.HasPrefix(rep.Message, "[DRY RUN] Would create workflow at /out/new.yxmd with 1 tool(s)"))

	_, err = store.Stat("/out/new.yxmd")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.Empty(t, written)
	assert.Empty(t, rec.calls)

	// Invalid input still fails in preview.
	_, err = e.Create(context.Background(), "/out/dup.yxmd", []api.ToolSpec{{ToolID: intp(1)}, {ToolID: intp(1)}}, nil, nil, true)
	assert.ErrorIs(t, err, workflow.ErrDuplicateID)
}

func TestJournalFailureDoesNotFailEdit(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is locked")}
	e := New(workflowtest.NewStore(t), WithRecorder(rec))

	rep, err := e.UpdateAnnotation(context.Background(), sample, 1, "x", false)
	require.NoError(t, err)
	assert.True(t, rep.Written)
	assert.Len(t, rec.calls, 1)
}
