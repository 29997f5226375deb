package schema

import "reflect"

// Clone returns a deep copy of s. Shared sub-schemas stay shared in the copy
// and cycles are reproduced, so the copy has the same shape as the original.
func Clone(s Schema) Schema {
	if s == nil {
		return nil
	}
	c := &cloner{maps: make(map[uintptr]map[string]any)}
	return Schema(c.cloneMap(s))
}

// CloneValue returns a deep copy of a JSON-shaped value.
func CloneValue(v any) any {
	c := &cloner{maps: make(map[uintptr]map[string]any)}
	return c.value(v)
}

type cloner struct {
	maps map[uintptr]map[string]any
}

func (c *cloner) cloneMap(m map[string]any) map[string]any {
	id := reflect.ValueOf(m).Pointer()
	if done, ok := c.maps[id]; ok {
		return done
	}
	out := make(map[string]any, len(m))
	c.maps[id] = out
	for k, v := range m {
		out[k] = c.value(v)
	}
	return out
}

func (c *cloner) value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		return c.cloneMap(t)
	case Schema:
		if t == nil {
			return t
		}
		return c.cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i := range t {
			out[i] = c.value(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
