package jsontree

import (
	json "github.com/goccy/go-json"

	"github.com/reoring/jsontree/schema"
)

// Record is the plain exchange form of a node and its subtree. Schemas
// encode cycle-safely; values must be JSON-shaped.
type Record struct {
	Type      string        `json:"type"`
	Name      string        `json:"name,omitempty"`
	Value     any           `json:"value"`
	Schema    schema.Schema `json:"schema,omitempty"`
	Children  []Record      `json:"children,omitempty"`
	Renamable bool          `json:"renamable"`
	Editable  bool          `json:"editable"`
	Draggable bool          `json:"draggable"`
	Droppable bool          `json:"droppable"`
	Expanded  bool          `json:"expanded"`
	Selected  bool          `json:"selected"`
}

// Export returns the record of n's subtree. Values are shared with the tree,
// not copied.
func (n *Node) Export() Record {
	rec := Record{
		Type:      n.typ,
		Name:      n.name,
		Value:     n.value,
		Schema:    n.schema,
		Renamable: n.Renamable,
		Editable:  n.Editable,
		Draggable: n.Draggable,
		Droppable: n.Droppable,
		Expanded:  n.Expanded,
		Selected:  n.Selected,
	}
	if len(n.children) > 0 {
		rec.Children = make([]Record, len(n.children))
		for i, c := range n.children {
			rec.Children[i] = c.Export()
		}
	}
	return rec
}

// MarshalRecord encodes rec as JSON.
func MarshalRecord(rec Record) ([]byte, error) { return json.Marshal(rec) }

// UnmarshalRecord decodes a JSON record. Cycle markers written by
// MarshalRecord are turned back into shared maps, and a child schema that
// matches a sub-schema already decoded for an ancestor is replaced by it.
func UnmarshalRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	relinkRecord(&rec, schemaIndex{})
	return rec, nil
}

// schemaIndex maps canonical schema text to a decoded schema map.
type schemaIndex map[string]schema.Schema

func (ix schemaIndex) add(s schema.Schema) {
	seen := map[uintptr]bool{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			id := schema.ID(t)
			if seen[id] {
				return
			}
			seen[id] = true
			if text, err := schema.Canonical(t); err == nil {
				if _, ok := ix[string(text)]; !ok {
					ix[string(text)] = t
				}
			}
			for _, k := range sortedKeys(t) {
				walk(t[k])
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(map[string]any(s))
}

func relinkRecord(rec *Record, ix schemaIndex) {
	if rec.Schema != nil {
		text, err := schema.Canonical(rec.Schema)
		if known, ok := ix[string(text)]; err == nil && ok {
			rec.Schema = known
		} else {
			rec.Schema = schema.Relink(rec.Schema)
			ix.add(rec.Schema)
		}
	}
	for i := range rec.Children {
		relinkRecord(&rec.Children[i], ix)
	}
}

// Rehydrate rebuilds a detached tree from rec. The root value is deep-copied
// and every child value is bound to its slot in the parent container, so the
// rebuilt tree owns its value and shares nothing with rec. Hooks named by the
// record schemas are attached. The second result is the first node marked
// selected, or nil.
func (e *Engine) Rehydrate(rec Record) (*Node, *Node) {
	var selected *Node
	root := e.rehydrate(rec, nil, schema.CloneValue(rec.Value), &selected)
	return root, selected
}

func (e *Engine) rehydrate(rec Record, parent *Node, value any, selected **Node) *Node {
	if rec.Schema != nil {
		e.table.Attach(rec.Schema, e.registry)
	}
	n := &Node{
		id:        e.newID(),
		typ:       rec.Type,
		name:      rec.Name,
		value:     value,
		schema:    rec.Schema,
		parent:    parent,
		engine:    e,
		Renamable: rec.Renamable,
		Editable:  rec.Editable,
		Draggable: rec.Draggable,
		Droppable: rec.Droppable,
		Expanded:  rec.Expanded,
		Selected:  rec.Selected,
	}
	if n.typ == "" {
		n.typ = nodeType(value, rec.Schema)
	}
	if n.Selected && *selected == nil {
		*selected = n
	}
	if n.IsContainer() {
		n.children = make([]*Node, 0, len(rec.Children))
	}
	for i, cr := range rec.Children {
		if !n.IsContainer() {
			break
		}
		cv := n.bindSlot(i, cr)
		c := e.rehydrate(cr, n, cv, selected)
		if n.typ == schema.TypeArray {
			c.name = arrayLabel(i)
		}
		n.children = append(n.children, c)
		// c may have replaced its container while binding its own children.
		c.writeSlot()
	}
	return n
}

// bindSlot returns the value of the i-th child record inside n's container,
// adding a copy of the record value when the container lacks the slot.
func (n *Node) bindSlot(i int, cr Record) any {
	switch v := n.value.(type) {
	case map[string]any:
		if cv, ok := v[cr.Name]; ok {
			return cv
		}
		cv := schema.CloneValue(cr.Value)
		v[cr.Name] = cv
		return cv
	case []any:
		if i < len(v) {
			return v[i]
		}
		cv := schema.CloneValue(cr.Value)
		n.value = append(v, cv)
		return cv
	}
	cv := schema.CloneValue(cr.Value)
	if n.typ == schema.TypeArray {
		n.value = []any{cv}
	} else {
		n.value = map[string]any{cr.Name: cv}
	}
	return cv
}

// Clone returns a detached deep copy of n's subtree with fresh ids.
func (n *Node) Clone() *Node {
	e := n.engine
	if e == nil {
		e = New()
	}
	c, _ := e.Rehydrate(n.Export())
	c.Walk(func(x *Node) bool {
		x.Selected = false
		return true
	})
	return c
}
