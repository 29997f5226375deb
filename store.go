package jsontree

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
	"github.com/reoring/jsontree/validate"
)

// Store is an editing session: one tree under one root schema, the selected
// node and the current validation message. Every edit made through the store
// revalidates the whole value against the root schema.
//
// A Store is meant for a single caller.
type Store struct {
	engine    *Engine
	validator *validate.Validator
	logger    *log.Logger

	schema   schema.Schema // as given to SetValue, used for validation
	tree     *Node
	selected *Node
	alert    string
	diags    []validate.Diagnostic
	defaults []*Node
	unsub    func()

	lmu       sync.Mutex
	listeners []*listener
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithValidator replaces the validator.
func WithValidator(v *validate.Validator) StoreOption { return func(s *Store) { s.validator = v } }

// NewStore returns an empty store on e (a default engine when nil). Default
// children are built by SetRepository or PopulateDefaultChildren.
func NewStore(e *Engine, opts ...StoreOption) *Store {
	if e == nil {
		e = New()
	}
	s := &Store{engine: e, logger: e.Logger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validate.New(validate.WithDraft(e.Draft()))
	}
	s.validator.SetResolvers(e.Repository().Resolvers())
	return s
}

// Engine returns the engine of the store.
func (s *Store) Engine() *Engine { return s.engine }

// Tree returns the root node, or nil before SetValue/SetTree.
func (s *Store) Tree() *Node { return s.tree }

// Selected returns the selected node.
func (s *Store) Selected() *Node { return s.selected }

// Schema returns the root schema given to SetValue.
func (s *Store) Schema() schema.Schema { return s.schema }

// AlertMessage returns the current validation message ("" when valid).
func (s *Store) AlertMessage() string { return s.alert }

// Diagnostics returns the findings behind AlertMessage.
func (s *Store) Diagnostics() []validate.Diagnostic { return s.diags }

// DefaultChildren returns the cached default children templates.
func (s *Store) DefaultChildren() []*Node { return append([]*Node(nil), s.defaults...) }

// SetRepository replaces the custom repository and rebuilds the default
// children.
func (s *Store) SetRepository(ctx context.Context, r repository.Repository) error {
	s.engine.SetRepository(r)
	s.validator.SetResolvers(s.engine.Repository().Resolvers())
	return s.PopulateDefaultChildren(ctx)
}

// SetSchemaFunctions registers hooks in the engine registry.
func (s *Store) SetSchemaFunctions(funcs map[string]Hook) { s.engine.Registry().Merge(funcs) }

// SetValue starts a session on value under sc. A nil value is replaced by the
// default value of sc. The root is selected.
func (s *Store) SetValue(ctx context.Context, value any, sc schema.Schema, name string, renamable bool) error {
	prepared, err := s.engine.Dereference(ctx, sc)
	if err != nil {
		return err
	}
	if value == nil {
		value = GenerateDefault(prepared)
	}
	tree, err := s.engine.Populate(ctx, value, prepared, name, renamable)
	if err != nil {
		return err
	}
	s.schema = sc
	s.attach(tree)
	tree.Selected = true
	s.selected = tree
	s.Validate(ctx)
	return nil
}

// SetTree restores a session from an exported record. Selection comes from
// the first node marked selected, else the root. The root schema is kept.
// Schemas only the previous tree used are released from the engine caches.
func (s *Store) SetTree(ctx context.Context, rec Record) {
	tree, sel := s.engine.Rehydrate(rec)
	s.attach(tree)
	if sel == nil {
		tree.Selected = true
		sel = tree
	}
	s.selected = sel
	s.Validate(ctx)
}

// attach makes tree current and releases the schemas only the previous tree
// used.
func (s *Store) attach(tree *Node) {
	if s.unsub != nil {
		s.unsub()
	}
	old := s.tree
	s.tree = tree
	s.unsub = tree.Subscribe(s.publish)
	if old != nil && old != tree {
		s.engine.Release([]*Node{old}, s.live()...)
	}
}

// live lists the nodes whose schemas the store still uses.
func (s *Store) live() []*Node {
	out := append([]*Node(nil), s.defaults...)
	if s.tree != nil {
		out = append(out, s.tree)
	}
	return out
}

// Subscribe registers fn for every change of the current and later trees.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	l := &listener{fn: fn}
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, x := range s.listeners {
			if x == l {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) publish(c Change) {
	s.lmu.Lock()
	ls := append([]*listener(nil), s.listeners...)
	s.lmu.Unlock()
	for _, l := range ls {
		l.fn(c)
	}
}

// Toggle flips the expanded flag of n.
func (s *Store) Toggle(n *Node) { n.Expanded = !n.Expanded }

// Select makes n the only selected node and ends in-place edits of the
// previous one.
func (s *Store) Select(n *Node) {
	if p := s.selected; p != nil {
		p.Selected = false
		p.EditingName = false
		p.EditingValue = false
	}
	s.selected = n
	if n != nil {
		n.Selected = true
	}
}

// StartEditName marks n as being renamed.
func (s *Store) StartEditName(n *Node) { n.EditingName = true }

// StopEditName ends renaming n.
func (s *Store) StopEditName(n *Node) { n.EditingName = false }

// StartEditValue marks n's value as being edited.
func (s *Store) StartEditValue(n *Node) { n.EditingValue = true }

// StopEditValue ends editing n's value.
func (s *Store) StopEditValue(n *Node) { n.EditingValue = false }

// Rename renames n and revalidates.
func (s *Store) Rename(ctx context.Context, n *Node, name string) error {
	err := n.Rename(name)
	s.Validate(ctx)
	return err
}

// UpdateValue sets the value of leaf n and revalidates.
func (s *Store) UpdateValue(ctx context.Context, n *Node, v any) bool {
	ok := n.UpdateValue(v)
	s.Validate(ctx)
	return ok
}

// Append adds child to n and revalidates.
func (s *Store) Append(ctx context.Context, n, child *Node) error {
	err := n.Append(child)
	s.Validate(ctx)
	return err
}

// AppendRecord adds the node described by rec to n and revalidates.
func (s *Store) AppendRecord(ctx context.Context, n *Node, rec Record) error {
	err := n.AppendRecord(rec)
	s.Validate(ctx)
	return err
}

// Remove detaches n and revalidates. Removing the selected node selects its
// former parent.
func (s *Store) Remove(ctx context.Context, n *Node) {
	p := n.Parent()
	n.Remove()
	if p != nil && s.selected != nil && s.selected.IsAncestor(n) {
		s.Select(p)
	}
	s.Validate(ctx)
}

// MoveUp moves n before its previous sibling and revalidates.
func (s *Store) MoveUp(ctx context.Context, n *Node) bool {
	ok := n.MoveUp()
	s.Validate(ctx)
	return ok
}

// MoveDown moves n after its next sibling and revalidates.
func (s *Store) MoveDown(ctx context.Context, n *Node) bool {
	ok := n.MoveDown()
	s.Validate(ctx)
	return ok
}

// Validate checks the tree value against the root schema and refreshes the
// alert message. Schemas the validator cannot compile are logged and leave no
// message.
func (s *Store) Validate(ctx context.Context) []validate.Diagnostic {
	s.diags, s.alert = nil, ""
	if s.tree == nil || s.schema == nil {
		return nil
	}
	diags, err := s.validator.Validate(ctx, s.schema, s.tree.Value())
	if err != nil {
		s.logger.Warn("validate failed", "err", err)
		return nil
	}
	s.diags = diags
	s.alert = validate.Message(diags)
	return diags
}

// SetAlertMessage overrides the alert message.
func (s *Store) SetAlertMessage(msg string) { s.alert = msg }

// ClearAlertMessage clears the alert message.
func (s *Store) ClearAlertMessage() { s.alert = "" }

// ValidateChild reports whether child may be added to n.
func (s *Store) ValidateChild(ctx context.Context, n, child *Node) bool {
	return n.ValidateChild(ctx, child)
}

// EnumerateValidChildren returns the candidates of n followed by copies of
// the default children when n's schema admits arbitrary members: objects
// with an absent or true additionalProperties, tuple arrays with an absent or
// true additionalItems, and arrays without items. Copies added to arrays are
// not renamable.
func (s *Store) EnumerateValidChildren(ctx context.Context, n *Node) ([]*Node, error) {
	out, err := n.EnumerateValidChildren(ctx)
	if err != nil {
		return nil, err
	}
	sc := n.Schema()
	if sc == nil {
		return out, nil
	}
	switch n.Type() {
	case schema.TypeObject:
		if sc.AdditionalProperties().Permissive() {
			for _, d := range s.defaults {
				out = append(out, d.Clone())
			}
		}
	case schema.TypeArray:
		single, tuple := sc.Items()
		if (tuple != nil && sc.AdditionalItems().Permissive()) || (tuple == nil && single == nil) {
			for _, d := range s.defaults {
				c := d.Clone()
				c.Renamable = false
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// RetrieveTypes lists the known type names, custom ones first.
func (s *Store) RetrieveTypes(ctx context.Context) []string { return s.engine.RetrieveTypes(ctx) }

// RetrieveSchema returns the schema registered under name, or nil.
func (s *Store) RetrieveSchema(ctx context.Context, name string) schema.Schema {
	return s.engine.RetrieveSchema(ctx, name)
}

// PopulateDefaultChildren rebuilds the default children: one template per
// known type, built from the type's default value.
func (s *Store) PopulateDefaultChildren(ctx context.Context) error {
	old := s.defaults
	s.defaults = nil
	defer func() { s.engine.Release(old, s.live()...) }()
	for _, t := range s.RetrieveTypes(ctx) {
		sc := s.RetrieveSchema(ctx, t)
		if sc == nil {
			continue
		}
		if err := s.AddDefaultChild(ctx, sc); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Warn("default child skipped", "type", t, "err", err)
		}
	}
	return nil
}

// AddDefaultChild adds a template built from sc.
func (s *Store) AddDefaultChild(ctx context.Context, sc schema.Schema) error {
	prepared, err := s.engine.Dereference(ctx, sc)
	if err != nil {
		return err
	}
	n, err := s.engine.Populate(ctx, GenerateDefault(prepared), prepared, "", true)
	if err != nil {
		return err
	}
	s.defaults = append(s.defaults, n)
	return nil
}

// RemoveDefaultChild removes the first template whose schema title equals
// the title of sc and releases its schemas.
func (s *Store) RemoveDefaultChild(sc schema.Schema) {
	title := sc.Title()
	for i, d := range s.defaults {
		if d.Schema() != nil && d.Schema().Title() == title {
			s.defaults = append(s.defaults[:i], s.defaults[i+1:]...)
			s.engine.Release([]*Node{d}, s.live()...)
			return
		}
	}
}
