package jsontree

import (
	"errors"
	"fmt"

	"github.com/reoring/jsontree/schema"
)

// maxDefaultDepth bounds the recursion of the schema-aware generator, which
// matters for recursive schemas with required self references.
const maxDefaultDepth = 32

// maxDefaultItems caps minItems; larger counts keep the minimal value.
const maxDefaultItems = 1024

var (
	errNoDefault = errors.New("jsontree: no default for schema")
	errTooDeep   = fmt.Errorf("%w: recursion limit", errNoDefault)
)

// GenerateDefault returns a default value for s. It starts from the minimal
// value of schema.type and replaces it with a schema-aware default (default,
// const, enum, composition branches, required properties, minItems,
// minimum) when one can be derived. The result is deterministic and never
// shares containers with s.
func GenerateDefault(s schema.Schema) any {
	if s == nil {
		return nil
	}
	v := minimalValue(s.Type())
	if rich, err := richDefault(s, 0); err == nil {
		v = rich
	}
	return v
}

func minimalValue(t string) any {
	switch t {
	case schema.TypeString:
		return ""
	case schema.TypeInteger, schema.TypeNumber:
		return float64(0)
	case schema.TypeBoolean:
		return false
	case schema.TypeObject:
		return map[string]any{}
	case schema.TypeArray:
		return []any{}
	}
	return nil
}

func richDefault(s schema.Schema, depth int) (any, error) {
	if depth > maxDefaultDepth {
		return nil, errTooDeep
	}
	if d, ok := s.Default(); ok {
		return schema.CloneValue(d), nil
	}
	if c, ok := s["const"]; ok {
		return schema.CloneValue(c), nil
	}
	if e, ok := s.Enum(); ok && len(e) > 0 {
		return schema.CloneValue(e[0]), nil
	}
	if all := s.AllOf(); len(all) > 0 {
		return richDefault(schema.MergeAllOf(all), depth+1)
	}
	for _, branches := range [][]schema.Schema{s.AnyOf(), s.OneOf()} {
		if len(branches) > 0 {
			return richDefault(branches[0], depth+1)
		}
	}
	t := s.Type()
	if t == "" && s.Properties() != nil {
		t = schema.TypeObject
	}
	switch t {
	case schema.TypeObject:
		out := map[string]any{}
		for _, name := range s.Required() {
			ps, ok := s.Property(name)
			if !ok {
				continue
			}
			v, err := richDefault(ps, depth+1)
			if errors.Is(err, errTooDeep) {
				return nil, err
			}
			if err != nil {
				v = minimalValue(ps.Type())
			}
			out[name] = v
		}
		return out, nil
	case schema.TypeArray:
		n, _ := schema.Number(s["minItems"])
		if n > maxDefaultItems {
			return nil, fmt.Errorf("%w: minItems %v", errNoDefault, n)
		}
		single, tuple := s.Items()
		out := []any{}
		for i := 0; i < int(n); i++ {
			item := single
			if tuple != nil {
				if i >= len(tuple) {
					break
				}
				item = tuple[i]
			}
			if item == nil {
				out = append(out, nil)
				continue
			}
			v, err := richDefault(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case schema.TypeInteger, schema.TypeNumber:
		if m, ok := schema.Number(s["minimum"]); ok {
			return m, nil
		}
		return float64(0), nil
	case schema.TypeString:
		return "", nil
	case schema.TypeBoolean:
		return false, nil
	case schema.TypeNull:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unsupported shape", errNoDefault)
}
