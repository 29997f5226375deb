package jsontree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
)

// maxRefHops bounds chains of references to references.
const maxRefHops = 32

// Processor prepares repository schemas for tree building: it clones them,
// attaches hooks and resolves every $ref.
type Processor struct {
	registry *Registry
	table    *HookTable
	logger   *log.Logger
}

// NewProcessor returns a processor attaching hooks from reg into table.
func NewProcessor(reg *Registry, table *HookTable, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default().WithPrefix("jsontree")
	}
	return &Processor{registry: reg, table: table, logger: logger}
}

// Dereference returns a dereferenced copy of s. s is never modified.
//
// External references are pulled in through resolvers first, then hooks are
// attached to every schema object, then each internal reference object is
// replaced by its target. Replaced references share the target map, so the
// result may contain cycles. A reference object with sibling keys becomes a
// new map holding the target keys overridden by the siblings.
func (p *Processor) Dereference(ctx context.Context, s schema.Schema, resolvers repository.ResolverSet) (schema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	root, err := repository.Bundle(ctx, s, resolvers)
	if err != nil {
		var re *repository.RefError
		if errors.As(err, &re) {
			return nil, &ResolutionError{Ref: re.Ref, Cause: re.Err}
		}
		return nil, &ResolutionError{Cause: err}
	}
	p.table.Attach(root, p.registry)

	r := &refResolver{root: root, visited: map[uintptr]bool{}, merged: map[string]schema.Schema{}}
	out := root
	if ref, ok := root.Ref(); ok {
		target, err := r.target(ref)
		if err != nil {
			return nil, err
		}
		if schema.OnlyRef(root) {
			out = target
		} else {
			out = schema.MergeRef(root, target)
		}
	}
	if err := r.walk(map[string]any(out)); err != nil {
		return nil, err
	}
	// Merged reference objects are new maps.
	p.table.Attach(out, p.registry)
	p.logger.Debug("dereferenced schema", "title", out.Title(), "refs", r.count)
	return out, nil
}

type refResolver struct {
	root    schema.Schema
	visited map[uintptr]bool
	// merged keeps one map per (ref object, target) so shared ref objects
	// stay shared after resolution.
	merged map[string]schema.Schema
	count  int
}

func (r *refResolver) walk(m map[string]any) error {
	id := schema.ID(m)
	if r.visited[id] {
		return nil
	}
	r.visited[id] = true
	for _, k := range sortedKeys(m) {
		nv, err := r.value(m[k])
		if err != nil {
			return err
		}
		m[k] = nv
	}
	return nil
}

func (r *refResolver) value(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if ref, ok := x["$ref"].(string); ok {
			rep, err := r.replace(x, ref)
			if err != nil {
				return nil, err
			}
			return map[string]any(rep), r.walk(rep)
		}
		return x, r.walk(x)
	case []any:
		for i := range x {
			nv, err := r.value(x[i])
			if err != nil {
				return nil, err
			}
			x[i] = nv
		}
	}
	return v, nil
}

func (r *refResolver) replace(obj map[string]any, ref string) (schema.Schema, error) {
	target, err := r.target(ref)
	if err != nil {
		return nil, err
	}
	r.count++
	if schema.OnlyRef(obj) {
		return target, nil
	}
	key := fmt.Sprintf("%x:%x", schema.ID(obj), schema.ID(target))
	if m, ok := r.merged[key]; ok {
		return m, nil
	}
	m := schema.MergeRef(obj, target)
	r.merged[key] = m
	return m, nil
}

// target resolves an internal reference against the root, following
// references met on the way.
func (r *refResolver) target(ref string) (schema.Schema, error) {
	hops := 0
	return r.resolve(ref, &hops)
}

func (r *refResolver) resolve(ref string, hops *int) (schema.Schema, error) {
	uri, frag := schema.SplitRef(ref)
	if uri != "" {
		return nil, &ResolutionError{Ref: ref, Cause: errors.New("external reference left after bundling")}
	}
	cur := any(map[string]any(r.root))
	toks, err := schema.SplitPointer(frag)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Cause: err}
	}
	for _, tok := range toks {
		if cur, err = r.follow(cur, ref, hops); err != nil {
			return nil, err
		}
		next, ok := schema.Step(cur, tok)
		if !ok {
			return nil, &ResolutionError{Ref: ref, Cause: fmt.Errorf("no such location %q", "/"+strings.Join(toks, "/"))}
		}
		cur = next
	}
	if cur, err = r.follow(cur, ref, hops); err != nil {
		return nil, err
	}
	s, ok := schema.As(cur)
	if !ok {
		return nil, &ResolutionError{Ref: ref, Cause: errors.New("target is not a schema object")}
	}
	return s, nil
}

// follow resolves v while it is a pure reference object.
func (r *refResolver) follow(v any, ref string, hops *int) (any, error) {
	for {
		m, ok := v.(map[string]any)
		if !ok || !schema.OnlyRef(m) {
			return v, nil
		}
		*hops++
		if *hops > maxRefHops {
			return nil, &ResolutionError{Ref: ref, Cause: errors.New("reference chain too long")}
		}
		next, err := r.resolve(m["$ref"].(string), hops)
		if err != nil {
			return nil, err
		}
		v = map[string]any(next)
	}
}
