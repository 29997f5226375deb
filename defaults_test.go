package jsontree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/schema"
)

func TestGenerateDefault(t *testing.T) {
	tests := []struct {
		name   string
		schema schema.Schema
		want   any
	}{
		{"nil schema", nil, nil},
		{"string", schema.Schema{"type": "string"}, ""},
		{"integer minimum", schema.Schema{"type": "integer", "minimum": 3}, 3.0},
		{"explicit default", schema.Schema{"type": "number", "default": 2.5}, 2.5},
		{"enum", schema.Schema{"enum": []any{"x", "y"}}, "x"},
		{"const", schema.Schema{"const": "fixed"}, "fixed"},
		{"oneOf", schema.Schema{"oneOf": []any{map[string]any{"type": "boolean"}, map[string]any{"type": "string"}}}, false},
		{"allOf", schema.Schema{"allOf": []any{map[string]any{"type": "string"}, map[string]any{"minLength": 1}}}, ""},
		{
			"required properties",
			schema.Schema{
				"type":       "object",
				"required":   []any{"a", "b"},
				"properties": map[string]any{"a": map[string]any{"type": "boolean"}, "b": map[string]any{"type": "array"}, "c": map[string]any{"type": "string"}},
			},
			map[string]any{"a": false, "b": []any{}},
		},
		{
			"minItems",
			schema.Schema{"type": "array", "minItems": 2, "items": map[string]any{"type": "number", "default": 1.0}},
			[]any{1.0, 1.0},
		},
		{
			"oversized minItems",
			schema.Schema{"type": "array", "minItems": 1e9, "items": map[string]any{"type": "string"}},
			[]any{},
		},
		{"no type", schema.Schema{"description": "anything"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsontree.GenerateDefault(tt.schema))
		})
	}
}

func TestGenerateDefaultCopiesContainers(t *testing.T) {
	def := map[string]any{"k": []any{"v"}}
	s := schema.Schema{"type": "object", "default": def}
	got := jsontree.GenerateDefault(s).(map[string]any)
	assert.Equal(t, def, got)
	got["k"].([]any)[0] = "changed"
	assert.Equal(t, "v", def["k"].([]any)[0])
}

func TestGenerateDefaultRecursiveRequired(t *testing.T) {
	e := newEngine()
	s := schema.Schema{
		"type":       "object",
		"required":   []any{"self"},
		"properties": map[string]any{"self": map[string]any{"$ref": "#"}},
	}
	prepared, err := e.Dereference(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, jsontree.GenerateDefault(prepared), "falls back to the minimal value")
}
