// Package hookfuncs provides hooks for editing JSON Schema documents with the
// tree engine: schemas of a schema editor name them to adapt the offered
// children to the document being edited.
package hookfuncs

import (
	"context"
	"sort"

	"github.com/reoring/jsontree"
	"github.com/reoring/jsontree/schema"
)

// Hook names.
const (
	DefaultValue                 = "default-value"
	FilterProperties             = "filter-properties"
	EnumList                     = "enum-list"
	RequiredOrDependOnProperties = "required-or-depend-on-properties"
	DependentProperties          = "dependent-properties"
	NumericType                  = "numeric-type"
)

// commonProperties are the keywords offered for every schema.
var commonProperties = []string{"$id", "$schema", "title", "description", "definitions", "default"}

// typeProperties are the keywords offered per schema type.
var typeProperties = map[string][]string{
	schema.TypeString:  {"enum", "maxLength", "minLength", "format", "pattern"},
	schema.TypeInteger: {"enum", "multipleOf", "maximum", "exclusiveMaximum", "minimum", "exclusiveMinimum"},
	schema.TypeNumber:  {"enum", "multipleOf", "maximum", "exclusiveMaximum", "minimum", "exclusiveMinimum"},
	schema.TypeObject:  {"enum", "properties", "additionalProperties", "maxProperties", "minProperties", "required", "dependencies"},
	schema.TypeArray:   {"enum", "items", "additionalItems", "maxItems", "minItems", "uniqueItems"},
}

// All returns every hook of the package by name.
func All() map[string]jsontree.Hook {
	return map[string]jsontree.Hook{
		DefaultValue:                 defaultValue,
		FilterProperties:             filterProperties,
		EnumList:                     enumList,
		RequiredOrDependOnProperties: requiredOrDependOnProperties,
		DependentProperties:          dependentProperties,
		NumericType:                  numericType,
	}
}

// Register installs the hooks into reg.
func Register(reg *jsontree.Registry) { reg.Merge(All()) }

// defaultValue (before enumerate) makes the "default" property of the edited
// schema follow the schema itself.
func defaultValue(_ context.Context, call *jsontree.HookCall) error {
	n := call.Node
	props := n.Schema().Properties()
	if props == nil {
		return nil
	}
	props["default"] = schema.CloneValue(n.Value())
	return nil
}

// filterProperties (before enumerate) offers only the keywords that apply to
// the type of the edited schema.
func filterProperties(_ context.Context, call *jsontree.HookCall) error {
	v, _ := call.Node.Value().(map[string]any)
	call.ClearVisibleProperties()
	if t, ok := v["type"].(string); ok && t != "" {
		call.SetVisibleProperties(append(append([]string(nil), commonProperties...), typeProperties[t]...))
		return nil
	}
	for _, k := range []string{"enum", "$ref", "oneOf", "allOf", "anyOf", "not"} {
		if _, ok := v[k]; ok {
			call.SetVisibleProperties(commonProperties)
			return nil
		}
	}
	return nil
}

// enumList (before enumerate) types the entries of an enum keyword after the
// schema that owns it.
func enumList(_ context.Context, call *jsontree.HookCall) error {
	p := call.Node.Parent()
	if p == nil {
		return nil
	}
	owner, _ := p.Value().(map[string]any)
	if _, ok := owner["type"]; !ok {
		return nil
	}
	items := schema.CloneValue(owner).(map[string]any)
	delete(items, "enum")
	call.Node.Schema()["items"] = items
	return nil
}

// requiredOrDependOnProperties (before enumerate) limits the entries of a
// required list, or of a dependency list, to the declared property names.
func requiredOrDependOnProperties(_ context.Context, call *jsontree.HookCall) error {
	n := call.Node
	owner := n.Parent()
	if n.Name() != "required" && owner != nil {
		owner = owner.Parent()
	}
	if owner == nil {
		return nil
	}
	names := propertyNames(owner)
	items, ok := schema.As(n.Schema()["items"])
	if !ok {
		items = schema.Schema{"type": schema.TypeString}
		n.Schema()["items"] = map[string]any(items)
	}
	enum := make([]any, len(names))
	for i, name := range names {
		enum[i] = name
	}
	items["enum"] = enum
	return nil
}

// dependentProperties (after build) suggests names for a new dependencies
// entry: declared properties that have no entry yet.
func dependentProperties(_ context.Context, call *jsontree.HookCall) error {
	n := call.Node
	if n.Name() != "dependencies" || call.Child == nil {
		return nil
	}
	owner := n.Parent()
	if owner == nil {
		return nil
	}
	if v, _ := owner.Value().(map[string]any); v["type"] != schema.TypeObject {
		return nil
	}
	existing, _ := n.Value().(map[string]any)
	var hints []string
	for _, name := range propertyNames(owner) {
		if _, ok := existing[name]; !ok {
			hints = append(hints, name)
		}
	}
	call.Child.NameHints = hints
	return nil
}

// numericType (before build) keeps numeric keywords such as minimum in the
// numeric type of the edited schema.
func numericType(_ context.Context, call *jsontree.HookCall) error {
	v, _ := call.Node.Value().(map[string]any)
	switch t := v["type"]; t {
	case schema.TypeInteger, schema.TypeNumber:
		call.Schema["type"] = t
	}
	return nil
}

// propertyNames lists the keys of the "properties" child of owner.
func propertyNames(owner *jsontree.Node) []string {
	props := owner.ChildByName("properties")
	if props == nil {
		return nil
	}
	m, _ := props.Value().(map[string]any)
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
