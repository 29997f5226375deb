package jsontree

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	json "github.com/goccy/go-json"
)

// ChangeKind names a structural edit.
type ChangeKind string

// Change kinds.
const (
	ChangeRename ChangeKind = "rename"
	ChangeAppend ChangeKind = "append"
	ChangeRemove ChangeKind = "remove"
	ChangeUpdate ChangeKind = "update"
	ChangeMove   ChangeKind = "move"
)

// Change describes one applied edit. Path and From are JSON Pointers into the
// root value: Path is the location after the edit (the removed location for
// ChangeRemove), From the location before a rename or move.
type Change struct {
	Kind   ChangeKind
	Node   *Node
	Parent *Node
	Path   string
	From   string
	Value  any // new value for ChangeAppend and ChangeUpdate
}

// Patch returns the RFC 6902 patch that turns the value before the change into
// the value after it.
func (c Change) Patch() (jsonpatch.Patch, error) {
	if (c.Kind == ChangeRename || c.Kind == ChangeMove) && c.From == c.Path {
		// Renamed root, or reordered object members: the value is unchanged.
		return jsonpatch.Patch{}, nil
	}
	op := map[string]any{"path": c.Path}
	switch c.Kind {
	case ChangeAppend:
		op["op"] = "add"
		op["value"] = c.Value
	case ChangeUpdate:
		op["op"] = "replace"
		op["value"] = c.Value
	case ChangeRemove:
		op["op"] = "remove"
	case ChangeRename, ChangeMove:
		op["op"] = "move"
		op["from"] = c.From
	default:
		return nil, fmt.Errorf("jsontree: unknown change kind %q", c.Kind)
	}
	data, err := json.Marshal([]any{op})
	if err != nil {
		return nil, fmt.Errorf("jsontree: encode patch: %w", err)
	}
	return jsonpatch.DecodePatch(data)
}

type listener struct {
	fn func(Change)
}

// Subscribe registers fn for changes of n and of its descendants. The
// returned function removes the subscription.
func (n *Node) Subscribe(fn func(Change)) (cancel func()) {
	l := &listener{fn: fn}
	n.lmu.Lock()
	n.listeners = append(n.listeners, l)
	n.lmu.Unlock()
	return func() {
		n.lmu.Lock()
		defer n.lmu.Unlock()
		for i, x := range n.listeners {
			if x == l {
				n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify delivers c to the listeners of from and of its ancestors.
func notify(from *Node, c Change) {
	for cur := from; cur != nil; cur = cur.parent {
		cur.lmu.Lock()
		ls := append([]*listener(nil), cur.listeners...)
		cur.lmu.Unlock()
		for _, l := range ls {
			l.fn(c)
		}
	}
}
