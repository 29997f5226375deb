// Package schema holds JSON-Schema-like documents in their decoded form
// (map[string]any) together with the read helpers the tree engine needs.
//
// Nested sub-schemas stay plain map[string]any values so that a document
// decoded by any JSON or YAML decoder can be used as-is. The identity of a
// schema object is the identity of its map (see ID); dereferenced documents
// may share sub-schemas and may contain cycles.
package schema

import (
	"reflect"
	"sort"
)

// Schema is a JSON-Schema-like document or sub-document.
type Schema map[string]any

// Extension keys understood by the engine.
const (
	KeyBeforeEnumerate   = "@beforeEnum"
	KeyBeforeBuild       = "@beforeBuild"
	KeyAfterBuild        = "@afterBuild"
	KeyVisibleProperties = "@visibleProperties"
)

// Value types of a node. TypeEnum is not a JSON Schema type; it marks a node
// constrained by an enum list without a declared type.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeEnum    = "enum"
	TypeNull    = "null"
)

// As converts a decoded value into a Schema when it is an object.
func As(v any) (Schema, bool) {
	switch t := v.(type) {
	case Schema:
		return t, t != nil
	case map[string]any:
		return Schema(t), t != nil
	}
	return nil, false
}

// ID returns the identity of the schema object. Two schemas share an ID only
// when they are the same map.
func ID(s Schema) uintptr {
	if s == nil {
		return 0
	}
	return reflect.ValueOf(s).Pointer()
}

// Same reports whether a and b are the same schema object.
func Same(a, b Schema) bool { return a != nil && ID(a) == ID(b) }

// Types returns the declared type list ("type" may be a string or a list).
func (s Schema) Types() []string {
	switch t := s["type"].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return nil
}

// Type returns the first declared type, or "".
func (s Schema) Type() string {
	if ts := s.Types(); len(ts) > 0 {
		return ts[0]
	}
	return ""
}

// HasType reports whether t is one of the declared types.
func (s Schema) HasType(t string) bool {
	for _, v := range s.Types() {
		if v == t {
			return true
		}
	}
	return false
}

// Enum returns the enum list.
func (s Schema) Enum() ([]any, bool) {
	e, ok := s["enum"].([]any)
	return e, ok
}

// Buildable reports whether the schema declares a type or an enum, which is
// what makes it a candidate on its own (outside of composition keywords).
func (s Schema) Buildable() bool {
	if t, ok := s["type"]; ok && t != nil {
		return true
	}
	_, ok := s.Enum()
	return ok
}

// Title returns the title, or "".
func (s Schema) Title() string {
	t, _ := s["title"].(string)
	return t
}

// ReadOnly reports readOnly (or the legacy readonly) flags.
func (s Schema) ReadOnly() bool {
	if v, ok := s["readOnly"].(bool); ok && v {
		return true
	}
	v, _ := s["readonly"].(bool)
	return v
}

// Default returns the declared default value.
func (s Schema) Default() (any, bool) {
	v, ok := s["default"]
	return v, ok
}

// Properties returns the properties map.
func (s Schema) Properties() map[string]any {
	switch t := s["properties"].(type) {
	case map[string]any:
		return t
	case Schema:
		return t
	}
	return nil
}

// PropertyNames returns the declared property names in sorted order.
func (s Schema) PropertyNames() []string {
	props := s.Properties()
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Property returns the schema of a declared property.
func (s Schema) Property(name string) (Schema, bool) {
	props := s.Properties()
	if props == nil {
		return nil, false
	}
	return As(props[name])
}

// Declares reports whether name is a declared property slot.
func (s Schema) Declares(name string) bool {
	props := s.Properties()
	if props == nil {
		return false
	}
	v, ok := props[name]
	return ok && v != nil
}

// Items returns either the single items schema or the tuple form.
func (s Schema) Items() (single Schema, tuple []Schema) {
	switch t := s["items"].(type) {
	case map[string]any:
		return Schema(t), nil
	case Schema:
		return t, nil
	case []any:
		tuple = make([]Schema, 0, len(t))
		for _, v := range t {
			sub, _ := As(v)
			tuple = append(tuple, sub)
		}
		return nil, tuple
	}
	return nil, nil
}

// IsTuple reports whether items is declared in tuple (list) form.
func (s Schema) IsTuple() bool {
	_, ok := s["items"].([]any)
	return ok
}

// AdditionalKind classifies additionalProperties / additionalItems.
type AdditionalKind int

const (
	AdditionalAbsent AdditionalKind = iota
	AdditionalAllowed
	AdditionalForbidden
	AdditionalSchema
)

// Additional describes an additionalProperties or additionalItems keyword.
type Additional struct {
	Kind   AdditionalKind
	Schema Schema
}

// Permissive reports whether the keyword is absent or true.
func (a Additional) Permissive() bool {
	return a.Kind == AdditionalAbsent || a.Kind == AdditionalAllowed
}

func additional(v any, present bool) Additional {
	if !present {
		return Additional{Kind: AdditionalAbsent}
	}
	switch t := v.(type) {
	case bool:
		if t {
			return Additional{Kind: AdditionalAllowed}
		}
		return Additional{Kind: AdditionalForbidden}
	default:
		if sub, ok := As(t); ok {
			return Additional{Kind: AdditionalSchema, Schema: sub}
		}
	}
	return Additional{Kind: AdditionalAbsent}
}

// AdditionalProperties classifies the additionalProperties keyword.
func (s Schema) AdditionalProperties() Additional {
	v, ok := s["additionalProperties"]
	return additional(v, ok)
}

// AdditionalItems classifies the additionalItems keyword.
func (s Schema) AdditionalItems() Additional {
	v, ok := s["additionalItems"]
	return additional(v, ok)
}

// Required returns the names listed under required.
func (s Schema) Required() []string {
	return stringList(s["required"])
}

// Dependencies returns the property dependencies (list form only; schema
// dependencies are not property gates).
func (s Schema) Dependencies() (map[string][]string, bool) {
	raw, ok := s["dependencies"].(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		if _, isList := v.([]any); isList {
			out[k] = stringList(v)
			continue
		}
		if l, isList := v.([]string); isList {
			out[k] = append([]string(nil), l...)
		}
	}
	return out, true
}

// VisibleProperties returns the static visibility filter, if any.
func (s Schema) VisibleProperties() ([]string, bool) {
	v, ok := s[KeyVisibleProperties]
	if !ok || v == nil {
		return nil, false
	}
	return stringList(v), true
}

// AnyOf returns the anyOf branches.
func (s Schema) AnyOf() []Schema { return branches(s["anyOf"]) }

// OneOf returns the oneOf branches.
func (s Schema) OneOf() []Schema { return branches(s["oneOf"]) }

// AllOf returns the allOf branches.
func (s Schema) AllOf() []Schema { return branches(s["allOf"]) }

// Ref returns the $ref value.
func (s Schema) Ref() (string, bool) {
	r, ok := s["$ref"].(string)
	return r, ok
}

func branches(v any) []Schema {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Schema, 0, len(list))
	for _, b := range list {
		if sub, ok := As(b); ok {
			out = append(out, sub)
		}
	}
	return out
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Number reads a numeric keyword value. Documents decoded from JSON or YAML
// hold float64; documents written as Go literals may hold any integer kind.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}
