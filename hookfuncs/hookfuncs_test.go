package hookfuncs_test

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/hookfuncs"
	"github.com/reoring/jsontree/schema"
)

// editor is a small schema for editing JSON Schema documents.
func editor() schema.Schema {
	return schema.Schema{
		"type":        "object",
		"@beforeEnum": []any{hookfuncs.DefaultValue, hookfuncs.FilterProperties},
		"properties": map[string]any{
			"type":      map[string]any{"type": "string"},
			"title":     map[string]any{"type": "string"},
			"default":   map[string]any{"type": "string"},
			"minimum":   map[string]any{"type": "number", "@beforeBuild": hookfuncs.NumericType},
			"maxLength": map[string]any{"type": "integer"},
			"properties": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"$ref": "#"},
			},
			"required": map[string]any{"type": "array", "@beforeEnum": hookfuncs.RequiredOrDependOnProperties},
			"enum":     map[string]any{"type": "array", "@beforeEnum": hookfuncs.EnumList},
			"dependencies": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "array", "@afterBuild": hookfuncs.DependentProperties},
			},
		},
	}
}

func edit(t *testing.T, value map[string]any) *jsontree.Node {
	t.Helper()
	reg := jsontree.NewRegistry()
	hookfuncs.Register(reg)
	e := jsontree.New(jsontree.WithRegistry(reg), jsontree.WithLogger(log.New(io.Discard)))
	ctx := context.Background()
	prepared, err := e.Dereference(ctx, editor())
	require.NoError(t, err)
	root, err := e.Populate(ctx, value, prepared, "schema", false)
	require.NoError(t, err)
	return root
}

func candidateNames(t *testing.T, n *jsontree.Node) []string {
	t.Helper()
	cands, err := n.EnumerateValidChildren(context.Background())
	require.NoError(t, err)
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Name()
	}
	return out
}

func TestAll(t *testing.T) {
	reg := jsontree.NewRegistry()
	hookfuncs.Register(reg)
	assert.Len(t, reg.Names(), len(hookfuncs.All()))
}

func TestFilterPropertiesByType(t *testing.T) {
	root := edit(t, map[string]any{"type": "integer"})
	assert.Equal(t, []string{"default", "enum", "minimum", "title"}, candidateNames(t, root))

	root = edit(t, map[string]any{"type": "string"})
	assert.Equal(t, []string{"default", "enum", "maxLength", "title"}, candidateNames(t, root))

	root = edit(t, map[string]any{"enum": []any{}})
	assert.Equal(t, []string{"default", "title"}, candidateNames(t, root))
}

func TestFilterPropertiesWithoutType(t *testing.T) {
	root := edit(t, map[string]any{})
	assert.Contains(t, candidateNames(t, root), "properties", "no filter without a type")
}

func TestDefaultValueFollowsSchema(t *testing.T) {
	ctx := context.Background()
	root := edit(t, map[string]any{"type": "boolean"})
	cands, err := root.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "default", cands[0].Name())
	assert.Equal(t, schema.TypeBoolean, cands[0].Type())
	assert.Equal(t, false, cands[0].Value())
}

func TestNumericType(t *testing.T) {
	ctx := context.Background()
	root := edit(t, map[string]any{"type": "integer"})
	cands, err := root.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	var minimum *jsontree.Node
	for _, c := range cands {
		if c.Name() == "minimum" {
			minimum = c
		}
	}
	require.NotNil(t, minimum)
	assert.Equal(t, schema.TypeInteger, minimum.Type())
}

func TestRequiredOffersDeclaredProperties(t *testing.T) {
	ctx := context.Background()
	root := edit(t, map[string]any{
		"type":       "object",
		"properties": map[string]any{"b": map[string]any{}, "a": map[string]any{}},
		"required":   []any{},
	})
	required := root.ChildByName("required")
	cands, err := required.EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "a", cands[0].Value())
	items, _ := required.Schema().Items()
	enum, ok := items.Enum()
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, enum)
}

func TestEnumListTypedByOwner(t *testing.T) {
	ctx := context.Background()
	root := edit(t, map[string]any{"type": "number", "enum": []any{}})
	cands, err := root.ChildByName("enum").EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, schema.TypeNumber, cands[0].Type())
	assert.Equal(t, 0.0, cands[0].Value())
}

func TestDependentPropertiesHints(t *testing.T) {
	ctx := context.Background()
	root := edit(t, map[string]any{
		"type":         "object",
		"properties":   map[string]any{"a": map[string]any{}, "b": map[string]any{}, "c": map[string]any{}},
		"dependencies": map[string]any{"a": []any{}},
	})
	cands, err := root.ChildByName("dependencies").EnumerateValidChildren(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.True(t, cands[0].Renamable)
	assert.Equal(t, []string{"b", "c"}, cands[0].NameHints)
}
