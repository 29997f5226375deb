package jsontree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
)

var requiredCount = schema.Schema{
	"type":       "object",
	"required":   []any{"n"},
	"properties": map[string]any{"n": map[string]any{"type": "integer"}},
}

func TestStoreValidatesEveryEdit(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	require.NoError(t, st.SetValue(ctx, map[string]any{}, requiredCount, "root", false))

	assert.Contains(t, st.AlertMessage(), "n")
	require.Len(t, st.Diagnostics(), 1)
	assert.Same(t, st.Tree(), st.Selected())
	assert.True(t, st.Tree().Selected)

	cands, err := st.EnumerateValidChildren(ctx, st.Tree())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.NoError(t, st.Append(ctx, st.Tree(), cands[0]))
	assert.Empty(t, st.AlertMessage())
	assert.Empty(t, st.Diagnostics())

	n := st.Tree().ChildByName("n")
	assert.True(t, st.UpdateValue(ctx, n, "text"))
	assert.Contains(t, st.AlertMessage(), "/n: ")

	st.Remove(ctx, n)
	assert.NotEmpty(t, st.AlertMessage())

	st.SetAlertMessage("custom")
	assert.Equal(t, "custom", st.AlertMessage())
	st.ClearAlertMessage()
	assert.Empty(t, st.AlertMessage())
}

func TestStoreSetValueGeneratesDefault(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	require.NoError(t, st.SetValue(ctx, nil, requiredCount, "root", false))
	assert.Equal(t, map[string]any{"n": 0.0}, st.Tree().Value())
	assert.Empty(t, st.AlertMessage())
	assert.False(t, st.Tree().Renamable)
}

func TestStoreSetValueUnresolvable(t *testing.T) {
	st := jsontree.NewStore(newEngine())
	err := st.SetValue(context.Background(), nil, schema.Schema{"$ref": "#/nowhere"}, "root", false)
	_, ok := jsontree.AsResolutionError(err)
	assert.True(t, ok)
	assert.Nil(t, st.Tree())
}

func TestStoreSelection(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	require.NoError(t, st.SetValue(ctx, map[string]any{"a": map[string]any{"b": 1.0}}, schema.Schema{"type": "object"}, "root", true))
	root := st.Tree()
	a := root.ChildByName("a")
	b := a.ChildByName("b")

	st.StartEditName(root)
	st.StartEditValue(root)
	st.Select(b)
	assert.False(t, root.Selected)
	assert.False(t, root.EditingName)
	assert.False(t, root.EditingValue)
	assert.True(t, b.Selected)
	assert.Same(t, b, st.Selected())

	st.StartEditName(b)
	assert.True(t, b.EditingName)
	st.StopEditName(b)
	assert.False(t, b.EditingName)

	st.Toggle(a)
	assert.True(t, a.Expanded)
	st.Toggle(a)
	assert.False(t, a.Expanded)

	st.Remove(ctx, a)
	assert.Same(t, root, st.Selected(), "removing the selected branch selects its parent")
	assert.True(t, root.Selected)
}

func TestStoreRenameAndMove(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	require.NoError(t, st.SetValue(ctx, []any{"x", "y"}, schema.Schema{"type": "array", "items": map[string]any{"type": "string"}}, "list", true))
	root := st.Tree()

	assert.ErrorIs(t, st.Rename(ctx, root.Child(0), "z"), jsontree.ErrInvalidOperation)
	assert.True(t, st.MoveDown(ctx, root.Child(0)))
	assert.Equal(t, []any{"y", "x"}, root.Value())
	assert.True(t, st.MoveUp(ctx, root.Child(1)))
	assert.Equal(t, []any{"x", "y"}, root.Value())
	assert.NoError(t, st.Rename(ctx, root, "renamed"))
}

func TestStoreDefaultChildren(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	require.NoError(t, st.PopulateDefaultChildren(ctx))
	require.Len(t, st.DefaultChildren(), 6)

	require.NoError(t, st.SetValue(ctx, map[string]any{}, schema.Schema{"type": "object"}, "root", true))
	cands, err := st.EnumerateValidChildren(ctx, st.Tree())
	require.NoError(t, err)
	require.Len(t, cands, 6)
	assert.Equal(t, "string", cands[0].Type())
	assert.True(t, cands[0].Renamable)
	assert.False(t, cands[0].Selected)
	assert.NotSame(t, st.DefaultChildren()[0], cands[0], "templates are copied")

	cands[0].UpdateValue("changed")
	assert.Equal(t, "", st.DefaultChildren()[0].Value())

	require.NoError(t, st.SetValue(ctx, []any{}, schema.Schema{"type": "array"}, "root", true))
	cands, err = st.EnumerateValidChildren(ctx, st.Tree())
	require.NoError(t, err)
	require.Len(t, cands, 6)
	for _, c := range cands {
		assert.False(t, c.Renamable)
	}

	closed := schema.Schema{"type": "object", "additionalProperties": false}
	require.NoError(t, st.SetValue(ctx, map[string]any{}, closed, "root", true))
	cands, err = st.EnumerateValidChildren(ctx, st.Tree())
	require.NoError(t, err)
	assert.Empty(t, cands)

	st.RemoveDefaultChild(schema.Schema{"title": "string"})
	require.Len(t, st.DefaultChildren(), 5)
	assert.Equal(t, "integer", st.DefaultChildren()[0].Type())

	require.NoError(t, st.AddDefaultChild(ctx, schema.Schema{"type": "string", "title": "string"}))
	assert.Len(t, st.DefaultChildren(), 6)
}

func TestStoreSetRepository(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	mem := repository.NewMemory()
	mem.Add("point", schema.Schema{
		"type":       "object",
		"title":      "point",
		"required":   []any{"x", "y"},
		"properties": map[string]any{"x": map[string]any{"type": "number"}, "y": map[string]any{"type": "number"}},
	})
	require.NoError(t, st.SetRepository(ctx, mem))

	types := st.RetrieveTypes(ctx)
	assert.Equal(t, "point", types[0])
	require.Len(t, st.DefaultChildren(), 7)
	assert.Equal(t, map[string]any{"x": 0.0, "y": 0.0}, st.DefaultChildren()[0].Value())
	assert.NotNil(t, st.RetrieveSchema(ctx, "point"))

	s := schema.Schema{"type": "object", "properties": map[string]any{"at": map[string]any{"$ref": "default:point"}}}
	require.NoError(t, st.SetValue(ctx, map[string]any{"at": map[string]any{"x": 1.0}}, s, "root", true))
	assert.Contains(t, st.AlertMessage(), "/at: ", "repository references resolve during validation")
}

func TestStoreSubscribeFollowsTree(t *testing.T) {
	ctx := context.Background()
	st := jsontree.NewStore(newEngine())
	var kinds []jsontree.ChangeKind
	cancel := st.Subscribe(func(c jsontree.Change) { kinds = append(kinds, c.Kind) })

	require.NoError(t, st.SetValue(ctx, map[string]any{"a": "x"}, schema.Schema{"type": "object"}, "root", true))
	st.UpdateValue(ctx, st.Tree().ChildByName("a"), "y")
	assert.Equal(t, []jsontree.ChangeKind{jsontree.ChangeUpdate}, kinds)

	old := st.Tree()
	sel := old.ChildByName("a")
	st.Select(sel)
	st.SetTree(ctx, old.Export())
	assert.NotSame(t, old, st.Tree())
	assert.Equal(t, "/a", st.Selected().Pointer())
	assert.Equal(t, map[string]any{"a": "y"}, st.Tree().Value())

	old.ChildByName("a").UpdateValue("ignored")
	assert.Len(t, kinds, 1, "the replaced tree is no longer observed")

	st.Remove(ctx, st.Tree().ChildByName("a"))
	assert.Equal(t, []jsontree.ChangeKind{jsontree.ChangeUpdate, jsontree.ChangeRemove}, kinds)

	cancel()
	require.NoError(t, st.AppendRecord(ctx, st.Tree(), sel.Export()))
	assert.Len(t, kinds, 2)
	assert.Equal(t, map[string]any{"a": "ignored"}, st.Tree().Value())
}

func TestStoreReleasesReplacedSchemas(t *testing.T) {
	ctx := context.Background()
	reg := jsontree.NewRegistry()
	reg.Register("noop", func(context.Context, *jsontree.HookCall) error { return nil })
	e := newEngine(jsontree.WithRegistry(reg))
	st := jsontree.NewStore(e)
	hooked := schema.Schema{
		"type":        "object",
		"@beforeEnum": "noop",
		"properties": map[string]any{
			"a": map[string]any{"type": "string", "@beforeBuild": "noop"},
			"b": map[string]any{"allOf": []any{map[string]any{"type": "string", "@afterBuild": "noop"}}},
		},
	}
	session := func() int {
		require.NoError(t, st.SetValue(ctx, map[string]any{}, hooked, "root", true))
		cands, err := st.Tree().EnumerateValidChildren(ctx)
		require.NoError(t, err)
		require.Len(t, cands, 2)
		return e.Hooks().Len()
	}

	first := session()
	assert.Equal(t, 4, first)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, session())
	}

	kept := st.Tree()
	st.SetTree(ctx, kept.Export())
	assert.True(t, e.Hooks().Has(st.Tree().Schema(), jsontree.StageBeforeEnum), "schemas shared with the new tree keep their hooks")
}
