package jsontree

import (
	"context"
	"slices"

	"github.com/reoring/jsontree/schema"
)

// ValidateChild reports whether candidate may be added to n. Objects with an
// absent or true additionalProperties, tuple arrays with an absent or true
// additionalItems, and arrays without items accept anything; otherwise the
// candidate must match one of the children EnumerateValidChildren offers:
// same type, equal schema and, when the offered child is named, same name.
// Leaf nodes accept nothing.
func (n *Node) ValidateChild(ctx context.Context, candidate *Node) bool {
	if candidate == nil {
		return false
	}
	s := n.schema
	switch n.typ {
	case schema.TypeObject:
		if s == nil || s.AdditionalProperties().Permissive() {
			return true
		}
		return n.matchValidChildren(ctx, candidate)
	case schema.TypeArray:
		if s == nil {
			return true
		}
		single, tuple := s.Items()
		switch {
		case tuple != nil:
			if s.AdditionalItems().Permissive() {
				return true
			}
			return n.matchValidChildren(ctx, candidate)
		case single != nil:
			return n.matchValidChildren(ctx, candidate)
		}
		return true
	}
	return false
}

func (n *Node) matchValidChildren(ctx context.Context, candidate *Node) bool {
	valid, err := n.EnumerateValidChildren(ctx)
	if err != nil {
		return false
	}
	eq := schema.TextEqual
	if n.engine != nil && n.engine.equal != nil {
		eq = n.engine.equal
	}
	for _, c := range valid {
		if c.typ != candidate.typ {
			continue
		}
		if !eq(c.schema, candidate.schema) {
			continue
		}
		if c.name != "" && c.name != candidate.name {
			continue
		}
		return true
	}
	return false
}

// CheckPropertyDependency reports whether property name may be added given
// the list-form dependencies of n's schema: every property name depends on
// must already be a child, except properties that themselves depend on name.
func (n *Node) CheckPropertyDependency(name string) bool {
	if n.schema == nil {
		return true
	}
	deps, ok := n.schema.Dependencies()
	if !ok {
		return true
	}
	var missing []string
	for _, d := range deps[name] {
		if n.ChildByName(d) == nil {
			missing = append(missing, d)
		}
	}
	for dep, items := range deps {
		if slices.Contains(items, name) {
			missing = slices.DeleteFunc(missing, func(m string) bool { return m == dep })
		}
	}
	return len(missing) == 0
}
