package jsontree_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
)

func TestDereferenceLeavesInputAlone(t *testing.T) {
	e := newEngine()
	s := schema.Schema{
		"type":        "object",
		"definitions": map[string]any{"name": map[string]any{"type": "string"}},
		"properties":  map[string]any{"first": map[string]any{"$ref": "#/definitions/name"}},
	}
	before := mustJSON(t, s)

	out, err := e.Dereference(context.Background(), s)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(mustJSON(t, s)))

	first, ok := out.Property("first")
	require.True(t, ok)
	assert.Equal(t, "string", first.Type())
	_, hasRef := first.Ref()
	assert.False(t, hasRef)
	assert.False(t, schema.Same(out, s))
}

func TestDereferenceSharesTargets(t *testing.T) {
	e := newEngine()
	s := schema.Schema{
		"type":        "object",
		"definitions": map[string]any{"name": map[string]any{"type": "string"}},
		"properties": map[string]any{
			"a": map[string]any{"$ref": "#/definitions/name"},
			"b": map[string]any{"$ref": "#/definitions/name"},
			"c": map[string]any{"$ref": "#/definitions/name", "title": "C"},
		},
	}
	out, err := e.Dereference(context.Background(), s)
	require.NoError(t, err)
	a, _ := out.Property("a")
	b, _ := out.Property("b")
	c, _ := out.Property("c")
	assert.True(t, schema.Same(a, b))
	assert.False(t, schema.Same(a, c))
	assert.Equal(t, "C", c.Title())
	assert.Equal(t, "string", c.Type())
}

func TestDereferenceCycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	s := schema.Schema{
		"type":       "object",
		"properties": map[string]any{"child": map[string]any{"$ref": "#"}},
	}
	out, err := e.Dereference(ctx, s)
	require.NoError(t, err)
	child, ok := out.Property("child")
	require.True(t, ok)
	assert.True(t, schema.Same(out, child))

	root, err := e.Populate(ctx, map[string]any{"child": map[string]any{"child": map[string]any{}}}, out, "root", true)
	require.NoError(t, err)
	deepest := root.ChildByName("child").ChildByName("child")
	require.NotNil(t, deepest)
	assert.True(t, schema.Same(out, deepest.Schema()))

	cands, err := deepest.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, map[string]any{}, cands[0].Value())
}

func TestDereferenceCyclicInput(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	props := map[string]any{"v": map[string]any{"type": "string"}}
	s := schema.Schema{"type": "object", "properties": props}
	props["self"] = map[string]any(s)

	out, err := e.Dereference(ctx, s)
	require.NoError(t, err)
	self, ok := out.Property("self")
	require.True(t, ok)
	assert.True(t, schema.Same(out, self))
	assert.False(t, schema.Same(out, s))

	again, err := e.Dereference(ctx, out)
	require.NoError(t, err)
	self, ok = again.Property("self")
	require.True(t, ok)
	assert.True(t, schema.Same(again, self))

	root, err := e.Populate(ctx, map[string]any{"self": map[string]any{}}, again, "root", true)
	require.NoError(t, err)
	cands, err := root.ChildByName("self").EnumerateValidChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"self", "v"}, names(cands))
}

func TestDereferenceRootRef(t *testing.T) {
	e := newEngine()
	s := schema.Schema{
		"$ref":        "#/definitions/item",
		"definitions": map[string]any{"item": map[string]any{"type": "array", "items": map[string]any{"type": "string"}}},
	}
	out, err := e.Dereference(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "array", out.Type())
}

func TestDereferenceExternal(t *testing.T) {
	mem := repository.NewMemory()
	mem.Add("address", schema.Schema{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
	})
	e := newEngine(jsontree.WithRepository(mem))
	s := schema.Schema{"type": "object", "properties": map[string]any{"home": map[string]any{"$ref": "default:address"}}}

	out, err := e.Dereference(context.Background(), s)
	require.NoError(t, err)
	home, ok := out.Property("home")
	require.True(t, ok)
	assert.Equal(t, "object", home.Type())
	assert.True(t, home.Declares("city"))

	raw := e.RetrieveSchema(context.Background(), "address")
	_, stillCity := raw.Property("city")
	assert.True(t, stillCity, "repository document is not modified")
}

func TestDereferenceErrors(t *testing.T) {
	e := newEngine()
	missing := schema.Schema{"properties": map[string]any{"x": map[string]any{"$ref": "#/definitions/missing"}}}
	_, err := e.Dereference(context.Background(), missing)
	require.Error(t, err)
	re, ok := jsontree.AsResolutionError(err)
	require.True(t, ok)
	assert.Equal(t, "#/definitions/missing", re.Ref)

	external := schema.Schema{"properties": map[string]any{"x": map[string]any{"$ref": "default:nowhere"}}}
	_, err = e.Dereference(context.Background(), external)
	var target *jsontree.ResolutionError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "default:nowhere", target.Ref)

	loop := schema.Schema{"definitions": map[string]any{
		"a": map[string]any{"$ref": "#/definitions/b"},
		"b": map[string]any{"$ref": "#/definitions/a"},
	}, "properties": map[string]any{"x": map[string]any{"$ref": "#/definitions/a"}}}
	_, err = e.Dereference(context.Background(), loop)
	_, ok = jsontree.AsResolutionError(err)
	assert.True(t, ok, "reference loops are reported")
}

func TestRetrieveTypes(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()
	mem.Add("person", schema.Schema{"type": "object", "title": "person"})
	e := newEngine(jsontree.WithRepository(mem))
	types := e.RetrieveTypes(ctx)
	require.NotEmpty(t, types)
	assert.Equal(t, "person", types[0])
	assert.Contains(t, types, "string")
	assert.Nil(t, e.RetrieveSchema(ctx, "nope"))
}
