package jsontree

import (
	"context"

	"github.com/reoring/jsontree/schema"
)

// Populate builds the tree of value under the prepared schema s (see
// Dereference). The root is expanded; renamable applies to the root only.
//
// Child schemas come from properties, a schema-valued additionalProperties,
// tuple items or the single items schema; values without one get the
// repository schema named after their runtime type. Object members are
// visited in key order. Object members with no JSON form are skipped; array
// elements with no JSON form become null.
func (e *Engine) Populate(ctx context.Context, value any, s schema.Schema, name string, renamable bool) (*Node, error) {
	return e.populate(ctx, value, s, name, renamable, nil)
}

func (e *Engine) populate(ctx context.Context, value any, s schema.Schema, name string, renamable bool, parent *Node) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		s = e.inferSchema(ctx, value)
	}
	n := &Node{
		id:        e.newID(),
		typ:       nodeType(value, s),
		name:      name,
		value:     value,
		schema:    s,
		parent:    parent,
		engine:    e,
		Renamable: renamable,
		Editable:  s == nil || !s.ReadOnly(),
		Draggable: true,
		Droppable: true,
	}
	if parent == nil {
		n.Expanded = true
	} else {
		if parent.typ == schema.TypeArray || (parent.schema != nil && parent.schema.Declares(name)) {
			n.Renamable = false
		}
	}

	switch v := value.(type) {
	case map[string]any:
		if !n.IsContainer() {
			break
		}
		n.children = []*Node{}
		for _, k := range sortedKeys(v) {
			cv := v[k]
			if valueType(cv) == typeUndefined {
				continue
			}
			child, err := e.populate(ctx, cv, childSchema(s, n.typ, k, -1), k, true, n)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
	case []any:
		if !n.IsContainer() {
			break
		}
		n.children = []*Node{}
		for i, cv := range v {
			// Elements without a JSON form encode as null.
			if valueType(cv) == typeUndefined {
				v[i], cv = nil, nil
			}
			child, err := e.populate(ctx, cv, childSchema(s, n.typ, "", i), arrayLabel(i), true, n)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
	default:
		if n.IsContainer() {
			n.children = []*Node{}
		}
	}
	return n, nil
}

// childSchema picks the schema of an object member (key) or array element
// (index) of a parent typed typ. nil means "infer from the value".
func childSchema(s schema.Schema, typ, key string, index int) schema.Schema {
	if s == nil {
		return nil
	}
	switch typ {
	case schema.TypeObject:
		if ps, ok := s.Property(key); ok {
			return ps
		}
		if ap := s.AdditionalProperties(); ap.Kind == schema.AdditionalSchema {
			return ap.Schema
		}
	case schema.TypeArray:
		single, tuple := s.Items()
		if tuple != nil {
			if index >= 0 && index < len(tuple) {
				return tuple[index]
			}
			if ai := s.AdditionalItems(); ai.Kind == schema.AdditionalSchema {
				return ai.Schema
			}
			return nil
		}
		return single
	}
	return nil
}
