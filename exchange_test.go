package jsontree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/schema"
)

func exchangeTree(t *testing.T) (*jsontree.Engine, *jsontree.Node) {
	t.Helper()
	e := newEngine()
	s := schema.Schema{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "readOnly": true},
			"items": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		},
	}
	value := map[string]any{
		"id":    "x1",
		"items": []any{map[string]any{"n": 1.0}, map[string]any{"n": 2.0, "tags": []any{"a"}}},
	}
	return e, build(t, e, value, s)
}

func TestExportRehydrateRoundTrip(t *testing.T) {
	e, root := exchangeTree(t)
	sel, ok := root.Lookup("/items/1/tags/0")
	require.True(t, ok)
	sel.Selected = true
	root.ChildByName("items").Expanded = true

	data, err := jsontree.MarshalRecord(root.Export())
	require.NoError(t, err)
	rec, err := jsontree.UnmarshalRecord(data)
	require.NoError(t, err)

	back, selected := e.Rehydrate(rec)
	assert.JSONEq(t, string(mustJSON(t, root.Value())), string(mustJSON(t, back.Value())))
	require.NotNil(t, selected)
	assert.Equal(t, "/items/1/tags/0", selected.Pointer())
	assert.True(t, back.ChildByName("items").Expanded)
	assert.False(t, back.ChildByName("id").Editable)
	assert.NotEqual(t, root.ID(), back.ID())

	back.Walk(func(n *jsontree.Node) bool {
		got, err := schema.Resolve(back.Value(), n.Pointer())
		require.NoError(t, err)
		assert.Equal(t, got, n.Value(), n.Pointer())
		return true
	})

	require.True(t, selected.UpdateValue("b"))
	assert.Equal(t, "a", sel.Value(), "rehydrated tree owns its value")
	tags := back.Value().(map[string]any)["items"].([]any)[1].(map[string]any)["tags"].([]any)
	assert.Equal(t, "b", tags[0])
}

func TestRehydrateWithoutRecordedSelection(t *testing.T) {
	e, root := exchangeTree(t)
	back, selected := e.Rehydrate(root.Export())
	assert.Nil(t, selected)
	assert.Equal(t, root.Len(), back.Len())
}

func TestClone(t *testing.T) {
	_, root := exchangeTree(t)
	items := root.ChildByName("items")
	items.Selected = true

	c := items.Clone()
	assert.Nil(t, c.Parent())
	assert.False(t, c.Selected)
	assert.NotEqual(t, items.ID(), c.ID())
	assert.Equal(t, items.Value(), c.Value())
	assert.True(t, schema.Same(items.Schema(), c.Schema()))

	require.True(t, c.Child(0).ChildByName("n").UpdateValue(9.0))
	assert.Equal(t, 1.0, items.Child(0).ChildByName("n").Value())
}

func TestAppendRecord(t *testing.T) {
	ctx := context.Background()
	_, root := exchangeTree(t)
	items := root.ChildByName("items")
	rec := items.Child(1).Export()

	require.NoError(t, items.AppendRecord(rec))
	assert.Equal(t, 3, items.Len())
	third := items.Child(2)
	assert.Equal(t, "[2]", third.Name())
	arr := root.Value().(map[string]any)["items"].([]any)
	assert.Equal(t, arr[2], third.Value())

	cands, err := items.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
}

func TestRecordKeepsRecursiveSchemas(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	root := build(t, e, map[string]any{"child": map[string]any{"child": map[string]any{}}}, schema.Schema{
		"type": "object",
		"properties": map[string]any{
			"child": map[string]any{"$ref": "#"},
			"v":     map[string]any{"type": "string"},
		},
	})
	before, err := root.ChildByName("child").ChildByName("child").EnumerateValidChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "v"}, names(before))

	data, err := jsontree.MarshalRecord(root.Export())
	require.NoError(t, err)
	rec, err := jsontree.UnmarshalRecord(data)
	require.NoError(t, err)
	back, _ := e.Rehydrate(rec)

	nested := back.ChildByName("child").ChildByName("child")
	require.NotNil(t, nested)
	assert.True(t, schema.Same(back.Schema(), nested.Schema()))
	child, ok := back.Schema().Property("child")
	require.True(t, ok)
	assert.True(t, schema.Same(back.Schema(), child))

	after, err := nested.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, names(before), names(after))
}
