package jsontree

import (
	"reflect"
	"strconv"
	"sync"

	"github.com/reoring/jsontree/schema"
)

// typeUndefined marks runtime values that have no JSON form (functions,
// channels). Object members holding one are skipped; array elements holding
// one become null.
const typeUndefined = "undefined"

// Node is one addressable position in the edited value.
//
// Container nodes share their value with the parent's container: an object
// child's map is the map stored under its name in the parent's map, and an
// array node writes its slice back into its parent slot whenever the slice
// header changes. Reading the root value therefore always reflects every
// edit.
type Node struct {
	id       string
	typ      string
	name     string
	value    any
	schema   schema.Schema
	parent   *Node
	children []*Node
	engine   *Engine

	lmu       sync.Mutex
	listeners []*listener

	Renamable    bool
	Editable     bool
	Draggable    bool
	Droppable    bool
	Expanded     bool
	Selected     bool
	EditingName  bool
	EditingValue bool

	// NameHints lists suggested names for a renamable candidate. Hooks fill
	// it; the engine does not read it.
	NameHints []string
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Type returns the node type (one of the schema.Type* constants).
func (n *Node) Type() string { return n.typ }

// Name returns the object key, or "[index]" for array elements.
func (n *Node) Name() string { return n.name }

// Value returns the node value.
func (n *Node) Value() any { return n.value }

// Schema returns the schema fragment of the node (may be nil). It is shared
// and must be treated as read-only.
func (n *Node) Schema() schema.Schema { return n.schema }

// Parent returns the parent, or nil for a root or detached node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the ordered children.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// ChildByName returns the child named name or nil.
func (n *Node) ChildByName(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Index returns the position of n among its siblings, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Root returns the root of n's tree.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// IsAncestor reports whether other is n itself or one of its ancestors.
func (n *Node) IsAncestor(other *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// IsContainer reports whether n is object or array typed.
func (n *Node) IsContainer() bool { return n.typ == schema.TypeObject || n.typ == schema.TypeArray }

// Pointer returns the JSON Pointer of n's value inside the root value.
func (n *Node) Pointer() string {
	var toks []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		toks = append(toks, cur.token())
	}
	for i, j := 0, len(toks)-1; i < j; i, j = i+1, j-1 {
		toks[i], toks[j] = toks[j], toks[i]
	}
	return schema.Pointer(toks...)
}

func (n *Node) token() string {
	if n.parent != nil && n.parent.typ == schema.TypeArray {
		return strconv.Itoa(n.Index())
	}
	return n.name
}

// Lookup finds the descendant addressed by a JSON Pointer relative to n.
func (n *Node) Lookup(ptr string) (*Node, bool) {
	toks, err := schema.SplitPointer(ptr)
	if err != nil {
		return nil, false
	}
	cur := n
	for _, tok := range toks {
		var next *Node
		if cur.typ == schema.TypeArray {
			i, err := strconv.Atoi(tok)
			if err != nil {
				return nil, false
			}
			next = cur.Child(i)
		} else {
			next = cur.ChildByName(tok)
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Walk calls fn for n and its descendants in depth-first order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

func arrayLabel(i int) string { return "[" + strconv.Itoa(i) + "]" }

// relabel renames array children after their positions.
func (n *Node) relabel() {
	if n.typ != schema.TypeArray {
		return
	}
	for i, c := range n.children {
		c.name = arrayLabel(i)
	}
}

// setValue replaces n's own value and writes it into the parent slot.
func (n *Node) setValue(v any) {
	n.value = v
	n.writeSlot()
}

// writeSlot stores n.value in the parent container at n's position.
func (n *Node) writeSlot() {
	p := n.parent
	if p == nil {
		return
	}
	switch pv := p.value.(type) {
	case map[string]any:
		pv[n.name] = n.value
	case []any:
		if i := n.Index(); i >= 0 && i < len(pv) {
			pv[i] = n.value
		}
	}
}

// objectValue returns n's map, creating it when the value is not a map.
func (n *Node) objectValue() map[string]any {
	if m, ok := n.value.(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	n.setValue(m)
	return m
}

// arrayValue returns n's slice (nil when the value is not a slice).
func (n *Node) arrayValue() []any {
	a, _ := n.value.([]any)
	return a
}

// nodeType derives the node type from the schema, falling back to the
// runtime type of value.
func nodeType(value any, s schema.Schema) string {
	if s != nil {
		types := s.Types()
		switch len(types) {
		case 0:
		case 1:
			return types[0]
		default:
			vt := valueType(value)
			for _, t := range types {
				if t == vt || (vt == schema.TypeNumber && t == schema.TypeInteger && isIntegral(value)) {
					return t
				}
			}
			return types[0]
		}
		if _, ok := s.Enum(); ok {
			return schema.TypeEnum
		}
	}
	return valueType(value)
}

// valueType classifies a runtime value by its JSON shape.
func valueType(v any) string {
	switch v.(type) {
	case nil:
		return schema.TypeNull
	case bool:
		return schema.TypeBoolean
	case string:
		return schema.TypeString
	case map[string]any, schema.Schema:
		return schema.TypeObject
	case []any:
		return schema.TypeArray
	}
	if _, ok := schema.Number(v); ok {
		return schema.TypeNumber
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Uint8, reflect.Uint16:
		return schema.TypeNumber
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return schema.TypeObject
		}
	case reflect.Slice, reflect.Array:
		return schema.TypeArray
	case reflect.String:
		// json.Number and named string types.
		if _, err := strconv.ParseFloat(rv.String(), 64); err == nil && rv.Type().Name() == "Number" {
			return schema.TypeNumber
		}
		return schema.TypeString
	case reflect.Bool:
		return schema.TypeBoolean
	}
	return typeUndefined
}

func isIntegral(v any) bool {
	f, ok := schema.Number(v)
	return ok && f == float64(int64(f))
}
