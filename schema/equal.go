package schema

import (
	"bytes"
	"reflect"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

// EqualFunc decides whether two schema fragments describe the same child
// slot. It is used when matching a candidate child against the declared
// property and tuple-item schemas.
type EqualFunc func(a, b Schema) bool

// cycleKey marks a back-edge in the canonical form of a cyclic schema.
const cycleKey = "$cycle"

// TextEqual compares the canonical JSON text of both schemas. Object keys are
// emitted in sorted order, so key order in the source documents does not
// matter; list order does.
func TextEqual(a, b Schema) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if Same(a, b) {
		return true
	}
	ta, err := Canonical(a)
	if err != nil {
		return false
	}
	tb, err := Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ta, tb)
}

// DeepEqual compares both schemas structurally with go-cmp.
func DeepEqual(a, b Schema) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if Same(a, b) {
		return true
	}
	return cmp.Equal(Acyclic(a), Acyclic(b))
}

// Canonical renders s as JSON with sorted keys. Back-edges of cyclic schemas
// are written as {"$cycle": <depth>} where depth is the index of the target on
// the path from the root.
func Canonical(s Schema) ([]byte, error) {
	return json.Marshal(Acyclic(s))
}

// MarshalJSON renders the schema cycle-safely.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return Canonical(s)
}

// Acyclic returns a tree-shaped copy of s where every map that is already on
// the current path is replaced by a {"$cycle": depth} marker.
func Acyclic(s Schema) map[string]any {
	if s == nil {
		return nil
	}
	out, _ := acyclicValue(map[string]any(s), nil).(map[string]any)
	return out
}

func acyclicValue(v any, path []uintptr) any {
	switch t := v.(type) {
	case Schema:
		return acyclicValue(map[string]any(t), path)
	case map[string]any:
		if t == nil {
			return t
		}
		id := reflect.ValueOf(t).Pointer()
		for depth, p := range path {
			if p == id {
				return map[string]any{cycleKey: strconv.Itoa(depth)}
			}
		}
		path = append(path, id)
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = acyclicValue(e, path)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = acyclicValue(t[i], path)
		}
		return out
	default:
		return v
	}
}

// Relink is the inverse of Acyclic: every {"$cycle": depth} marker is replaced
// by the map at that depth on the path from the root. s is modified in place
// and returned.
func Relink(s Schema) Schema {
	if s == nil {
		return nil
	}
	relinkValue(map[string]any(s), nil)
	return s
}

func relinkValue(v any, path []map[string]any) any {
	switch t := v.(type) {
	case Schema:
		return relinkValue(map[string]any(t), path)
	case map[string]any:
		if len(t) == 1 {
			if d, ok := t[cycleKey].(string); ok {
				if i, err := strconv.Atoi(d); err == nil && i >= 0 && i < len(path) {
					return path[i]
				}
			}
		}
		path = append(path, t)
		for k, e := range t {
			t[k] = relinkValue(e, path)
		}
		return t
	case []any:
		for i := range t {
			t[i] = relinkValue(t[i], path)
		}
		return t
	}
	return v
}
