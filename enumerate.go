package jsontree

import (
	"context"
	"slices"

	"github.com/reoring/jsontree/schema"
)

// EnumerateValidChildren builds the children that may be added to n next,
// each with a generated default value.
//
// For objects every declared property that is absent, visible and whose
// dependencies are met is offered once per anyOf and oneOf branch, once for
// the merged allOf branches and once for a typed or enum schema, in property
// name order. A schema-valued additionalProperties is expanded the same way
// into renamable, unnamed candidates. Tuple arrays offer the next unfilled
// slot only; single-schema arrays always offer their items schema.
//
// The before-enumerate hooks of n's schema run first. Each candidate runs the
// before-build hooks of its schema, then the after-build hooks. Hook failures
// are logged. The only error returned is ctx's.
func (n *Node) EnumerateValidChildren(ctx context.Context) ([]*Node, error) {
	s := n.schema
	if s == nil || n.engine == nil {
		return nil, nil
	}
	e := n.engine
	e.runHooks(ctx, s, &HookCall{Stage: StageBeforeEnum, Node: n})

	var out []*Node
	switch n.typ {
	case schema.TypeObject:
		visible, filtered := e.table.Visible(s)
		for _, p := range s.PropertyNames() {
			if filtered && !slices.Contains(visible, p) {
				continue
			}
			if n.ChildByName(p) != nil || !n.CheckPropertyDependency(p) {
				continue
			}
			ps, ok := s.Property(p)
			if !ok {
				continue
			}
			cands, err := n.expand(ctx, ps, p, false)
			if err != nil {
				return nil, err
			}
			out = append(out, cands...)
		}
		if ap := s.AdditionalProperties(); ap.Kind == schema.AdditionalSchema {
			cands, err := n.expand(ctx, ap.Schema, "", true)
			if err != nil {
				return nil, err
			}
			out = append(out, cands...)
		}
	case schema.TypeArray:
		single, tuple := s.Items()
		switch {
		case tuple != nil:
			if i := len(n.children); i < len(tuple) {
				cands, err := n.expand(ctx, tuple[i], "", false)
				if err != nil {
					return nil, err
				}
				out = append(out, cands...)
			}
		case single != nil:
			cands, err := n.expand(ctx, single, "", false)
			if err != nil {
				return nil, err
			}
			out = append(out, cands...)
		}
	}
	return out, nil
}

// expand builds the candidates of one slot schema.
func (n *Node) expand(ctx context.Context, s schema.Schema, name string, renamable bool) ([]*Node, error) {
	var out []*Node
	add := func(cs schema.Schema) error {
		c, err := n.buildValidChild(ctx, cs, name)
		if err != nil {
			return err
		}
		c.Renamable = renamable
		out = append(out, c)
		return nil
	}
	for _, b := range s.AnyOf() {
		if err := add(b); err != nil {
			return nil, err
		}
	}
	for _, b := range s.OneOf() {
		if err := add(b); err != nil {
			return nil, err
		}
	}
	if len(s.AllOf()) > 0 {
		if err := add(n.engine.mergeAllOf(s)); err != nil {
			return nil, err
		}
	}
	if s.Buildable() {
		if err := add(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Node) buildValidChild(ctx context.Context, s schema.Schema, name string) (*Node, error) {
	e := n.engine
	e.runHooks(ctx, s, &HookCall{Stage: StageBeforeBuild, Node: n, Schema: s})
	child, err := e.Populate(ctx, GenerateDefault(s), s, name, true)
	if err != nil {
		return nil, err
	}
	e.runHooks(ctx, s, &HookCall{Stage: StageAfterBuild, Node: n, Schema: s, Child: child})
	return child, nil
}
