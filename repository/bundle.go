package repository

import (
	"context"
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/jsontree/schema"
)

// Bundle returns a copy of doc in which every external $ref has been pulled
// into the document. The first occurrence of a target is inlined at the
// position of the reference; later occurrences (including recursive ones)
// become internal "#/..." references to that position. Internal references
// of an inlined document are re-anchored to its new position. doc itself is
// never mutated.
func Bundle(ctx context.Context, doc schema.Schema, resolvers ResolverSet) (schema.Schema, error) {
	if doc == nil {
		return nil, nil
	}
	b := &bundler{
		ctx:       ctx,
		resolvers: resolvers,
		docs:      map[string]schema.Schema{},
		inlined:   map[string]string{},
		seen:      map[uintptr]any{},
	}
	root := schema.Clone(doc)
	out, err := b.walk(map[string]any(root), nil, "")
	if err != nil {
		return nil, err
	}
	s, _ := schema.As(out)
	return s, nil
}

type bundler struct {
	ctx       context.Context
	resolvers ResolverSet
	docs      map[string]schema.Schema
	// inlined maps "uri#fragment" to the pointer where the target now lives.
	inlined map[string]string
	// seen maps a visited object to its bundled form so shared and cyclic
	// objects are walked once.
	seen map[uintptr]any
}

func (b *bundler) walk(v any, at []string, base string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		id := schema.ID(t)
		if done, ok := b.seen[id]; ok {
			return done, nil
		}
		b.seen[id] = t
		if ref, ok := t["$ref"].(string); ok {
			out, err := b.ref(t, ref, at, base)
			if err != nil {
				return nil, err
			}
			b.seen[id] = out
			return out, nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nv, err := b.walk(t[k], append(append([]string(nil), at...), k), base)
			if err != nil {
				return nil, err
			}
			t[k] = nv
		}
		return t, nil
	case []any:
		for i := range t {
			nv, err := b.walk(t[i], append(append([]string(nil), at...), strconv.Itoa(i)), base)
			if err != nil {
				return nil, err
			}
			t[i] = nv
		}
		return t, nil
	}
	return v, nil
}

func (b *bundler) ref(obj map[string]any, ref string, at []string, base string) (any, error) {
	uri, frag := schema.SplitRef(ref)
	if uri == "" {
		if base == "" {
			return obj, nil
		}
		uri = base
	} else if base != "" && !strings.Contains(uri, ":") && !strings.Contains(base, ":") {
		uri = path.Join(path.Dir(base), uri)
	}
	key := uri + "#" + frag
	if p, ok := b.inlined[key]; ok {
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = v
		}
		out["$ref"] = "#" + p
		return out, nil
	}
	doc, err := b.load(uri)
	if err != nil {
		return nil, &RefError{Ref: ref, Err: err}
	}
	target, err := schema.Resolve(map[string]any(doc), frag)
	if err != nil {
		return nil, &RefError{Ref: ref, Err: err}
	}
	ts, ok := schema.As(target)
	if !ok {
		return nil, &RefError{Ref: ref, Err: errors.New("target is not a schema object")}
	}
	b.inlined[key] = schema.Pointer(at...)
	inline := map[string]any(schema.Clone(ts))
	if len(obj) > 1 {
		inline = schema.MergeRef(schema.Schema(obj), schema.Schema(inline))
	}
	return b.walk(inline, at, uri)
}

func (b *bundler) load(uri string) (schema.Schema, error) {
	if d, ok := b.docs[uri]; ok {
		return d, nil
	}
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	d, err := b.resolvers.Read(b.ctx, uri)
	if err != nil {
		return nil, err
	}
	b.docs[uri] = d
	return d, nil
}
