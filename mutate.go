package jsontree

import (
	"reflect"
	"regexp"
	"slices"
	"strconv"

	"github.com/reoring/jsontree/schema"
)

// Rename renames an object member, moving its value to the new key. It fails
// with CodeInvalidName for an empty name and with CodeInvalidOperation when
// the parent is not an object or a sibling already carries newName. A root
// node can be renamed freely.
func (n *Node) Rename(newName string) error {
	n.EditingName = false
	if newName == "" {
		return validationError(CodeInvalidName)
	}
	p := n.parent
	if p != nil && (p.typ != schema.TypeObject || p.ChildByName(newName) != nil) {
		return validationError(CodeInvalidOperation)
	}
	from := n.Pointer()
	old := n.name
	if p != nil {
		m := p.objectValue()
		delete(m, old)
		m[newName] = n.value
	}
	n.name = newName
	notify(n, Change{Kind: ChangeRename, Node: n, Parent: p, Path: n.Pointer(), From: from})
	return nil
}

// Append adds child as the last child of n. A child that already has a parent
// is moved. Object members whose name is taken get the first unused "(k)"
// suffix, starting from the count of siblings named either the same or the
// same with a suffix. Array elements are labelled with their index. n is
// expanded.
func (n *Node) Append(child *Node) error {
	if !n.IsContainer() || child == nil {
		return validationError(CodeInvalidOperation)
	}
	if n.IsAncestor(child) {
		return validationError(CodeInvalidOperation)
	}
	if n.typ == schema.TypeObject && child.name == "" {
		return validationError(CodeInvalidName)
	}
	if child.parent != nil {
		child.Remove()
	}
	if child.engine == nil {
		child.engine = n.engine
	}
	if child.name != "" {
		child.name = n.uniqueName(child.name)
	}
	child.parent = n
	n.children = append(n.children, child)
	n.Expanded = true
	if n.typ == schema.TypeArray {
		child.name = arrayLabel(len(n.children) - 1)
		n.setValue(append(n.arrayValue(), child.value))
	} else {
		n.objectValue()[child.name] = child.value
	}
	notify(n, Change{Kind: ChangeAppend, Node: child, Parent: n, Path: child.Pointer(), Value: child.value})
	return nil
}

// AppendRecord converts rec into a node and appends it.
func (n *Node) AppendRecord(rec Record) error {
	if n.engine == nil {
		return validationError(CodeInvalidOperation)
	}
	child, _ := n.engine.Rehydrate(rec)
	return n.Append(child)
}

// uniqueName disambiguates name against the children of n. A free name is
// kept. Otherwise the suffix starts at the number of siblings named either
// the same or the same with a suffix, and grows until it is unused.
func (n *Node) uniqueName(name string) string {
	if n.ChildByName(name) == nil {
		return name
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `(\(\d+\))?$`)
	k := 0
	for _, c := range n.children {
		if re.MatchString(c.name) {
			k++
		}
	}
	for {
		cand := name + "(" + strconv.Itoa(k) + ")"
		if n.ChildByName(cand) == nil {
			return cand
		}
		k++
	}
}

// Remove detaches n from its parent and from the parent's value. Remaining
// array elements are relabelled. Removing a detached node does nothing.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	path := n.Pointer()
	i := n.Index()
	p.children = slices.Delete(p.children, i, i+1)
	n.parent = nil
	if p.typ == schema.TypeArray {
		if arr := p.arrayValue(); i < len(arr) {
			p.setValue(slices.Delete(arr, i, i+1))
		}
		p.relabel()
	} else if m, ok := p.value.(map[string]any); ok {
		delete(m, n.name)
	}
	notify(p, Change{Kind: ChangeRemove, Node: n, Parent: p, Path: path})
}

// UpdateValue replaces the value of a leaf node and writes it into the parent
// container. It does nothing for container nodes and for values without a
// JSON form, and reports whether the value was written.
func (n *Node) UpdateValue(v any) bool {
	n.EditingValue = false
	if n.IsContainer() || isUndefined(v) {
		return false
	}
	n.setValue(v)
	notify(n, Change{Kind: ChangeUpdate, Node: n, Parent: n.parent, Path: n.Pointer(), Value: v})
	return true
}

func isUndefined(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// MoveUp swaps n with its previous sibling. It reports whether n moved.
func (n *Node) MoveUp() bool { return n.move(-1) }

// MoveDown swaps n with its next sibling. It reports whether n moved.
func (n *Node) MoveDown() bool { return n.move(1) }

func (n *Node) move(delta int) bool {
	p := n.parent
	if p == nil {
		return false
	}
	i := n.Index()
	j := i + delta
	if i < 0 || j < 0 || j >= len(p.children) {
		return false
	}
	from := n.Pointer()
	p.children[i], p.children[j] = p.children[j], p.children[i]
	if p.typ == schema.TypeArray {
		if arr := p.arrayValue(); j < len(arr) && i < len(arr) {
			arr[i], arr[j] = arr[j], arr[i]
		}
		p.relabel()
	}
	notify(n, Change{Kind: ChangeMove, Node: n, Parent: p, Path: n.Pointer(), From: from})
	return true
}
