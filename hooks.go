package jsontree

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reoring/jsontree/schema"
)

// Stage is a lifecycle point at which schema hooks run.
type Stage int

const (
	// StageBeforeEnum runs before the valid children of a node are enumerated.
	StageBeforeEnum Stage = iota
	// StageBeforeBuild runs before a candidate child is built from its schema.
	StageBeforeBuild
	// StageAfterBuild runs after a candidate child has been built.
	StageAfterBuild
)

func (s Stage) String() string {
	switch s {
	case StageBeforeEnum:
		return "beforeEnum"
	case StageBeforeBuild:
		return "beforeBuild"
	case StageAfterBuild:
		return "afterBuild"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// key returns the schema extension key naming the hooks of the stage.
func (s Stage) key() string {
	switch s {
	case StageBeforeEnum:
		return schema.KeyBeforeEnumerate
	case StageBeforeBuild:
		return schema.KeyBeforeBuild
	default:
		return schema.KeyAfterBuild
	}
}

var stages = [...]Stage{StageBeforeEnum, StageBeforeBuild, StageAfterBuild}

// HookCall carries the arguments of a hook invocation.
//
//   - StageBeforeEnum: Node is the node being enumerated.
//   - StageBeforeBuild: Node is the parent, Schema the candidate schema. The
//     hook may adjust Schema before the default value is generated.
//   - StageAfterBuild: Node is the parent, Child the built candidate.
type HookCall struct {
	Stage  Stage
	Node   *Node
	Schema schema.Schema
	Child  *Node

	table *HookTable
}

// SetVisibleProperties restricts the properties offered when Node is
// enumerated. The filter is kept in the hook table, keyed by Node's schema.
func (c *HookCall) SetVisibleProperties(names []string) {
	if c.table == nil || c.Node == nil {
		return
	}
	c.table.SetVisible(c.Node.Schema(), names)
}

// ClearVisibleProperties removes a filter set by SetVisibleProperties.
func (c *HookCall) ClearVisibleProperties() {
	if c.table == nil || c.Node == nil {
		return
	}
	c.table.ClearVisible(c.Node.Schema())
}

// Hook is a function schemas refer to by name.
type Hook func(ctx context.Context, call *HookCall) error

// Registry maps hook names to functions.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{hooks: map[string]Hook{}} }

// DefaultRegistry is the registry engines use unless configured otherwise.
var DefaultRegistry = NewRegistry()

// Register adds or replaces a hook.
func (r *Registry) Register(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = h
}

// Merge registers every hook of funcs.
func (r *Registry) Merge(funcs map[string]Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n, h := range funcs {
		r.hooks[n] = h
	}
}

// Lookup returns the hook registered under name.
func (r *Registry) Lookup(name string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	return h, ok && h != nil
}

// Names lists the registered hook names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hooks))
	for n := range r.hooks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type namedHook struct {
	name string
	fn   Hook
}

type hookEntry struct {
	// s keeps the schema reachable so its identity cannot be reused by a new
	// map while the entry exists.
	s          schema.Schema
	hooks      [len(stages)][]namedHook
	visible    []string
	hasVisible bool
}

// HookTable is the side-table of hooks attached to schema objects, keyed by
// schema identity. Schemas themselves are never modified by attachment.
type HookTable struct {
	mu      sync.RWMutex
	entries map[uintptr]*hookEntry
}

// NewHookTable returns an empty table.
func NewHookTable() *HookTable { return &HookTable{entries: map[uintptr]*hookEntry{}} }

// Attach walks the schema graph of s once per distinct schema object and
// records the hooks named by its extension keys. Objects already in the table
// keep their entry. Names missing from reg are skipped.
func (t *HookTable) Attach(s schema.Schema, reg *Registry) {
	if s == nil {
		return
	}
	visited := map[uintptr]bool{}
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case map[string]any:
			obj := schema.Schema(x)
			id := schema.ID(obj)
			if visited[id] {
				return
			}
			visited[id] = true
			t.attachOne(obj, reg)
			for _, k := range sortedKeys(x) {
				walk(x[k])
			}
		case schema.Schema:
			walk(map[string]any(x))
		case []any:
			for _, e := range x {
				walk(e)
			}
		}
	}
	walk(map[string]any(s))
}

func (t *HookTable) attachOne(s schema.Schema, reg *Registry) {
	var found [len(stages)][]namedHook
	hasAny := false
	for i, st := range stages {
		for _, name := range hookNames(s[st.key()]) {
			if reg == nil {
				continue
			}
			if fn, ok := reg.Lookup(name); ok {
				found[i] = append(found[i], namedHook{name: name, fn: fn})
				hasAny = true
			}
		}
	}
	if !hasAny {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := schema.ID(s)
	e, ok := t.entries[id]
	if !ok {
		t.entries[id] = &hookEntry{s: s, hooks: found}
		return
	}
	for i := range e.hooks {
		if e.hooks[i] == nil {
			e.hooks[i] = found[i]
		}
	}
}

// hookNames reads a hook key value: a single name, a name-keyed map of names
// (visited in key order) or a list of names.
func hookNames(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case map[string]any:
		var out []string
		for _, k := range sortedKeys(x) {
			if n, ok := x[k].(string); ok {
				out = append(out, n)
			}
		}
		return out
	case []any:
		var out []string
		for _, e := range x {
			if n, ok := e.(string); ok {
				out = append(out, n)
			}
		}
		return out
	case []string:
		return x
	}
	return nil
}

func (t *HookTable) hooks(s schema.Schema, st Stage) []namedHook {
	if s == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[schema.ID(s)]
	if !ok {
		return nil
	}
	return e.hooks[st]
}

// Len returns the number of schema objects with an entry.
func (t *HookTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *HookTable) drop(ids map[uintptr]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range ids {
		delete(t.entries, id)
	}
}

// Has reports whether s has hooks for stage st.
func (t *HookTable) Has(s schema.Schema, st Stage) bool { return len(t.hooks(s, st)) > 0 }

// SetVisible records a computed property filter for s.
func (t *HookTable) SetVisible(s schema.Schema, names []string) {
	if s == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := schema.ID(s)
	e, ok := t.entries[id]
	if !ok {
		e = &hookEntry{s: s}
		t.entries[id] = e
	}
	e.visible = append([]string(nil), names...)
	e.hasVisible = true
}

// ClearVisible drops the computed property filter of s.
func (t *HookTable) ClearVisible(s schema.Schema) {
	if s == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[schema.ID(s)]; ok {
		e.visible = nil
		e.hasVisible = false
	}
}

// Visible returns the property filter of s: the computed one if a hook set
// it, else the static @visibleProperties list.
func (t *HookTable) Visible(s schema.Schema) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	t.mu.RLock()
	e, ok := t.entries[schema.ID(s)]
	if ok && e.hasVisible {
		out := e.visible
		t.mu.RUnlock()
		return out, true
	}
	t.mu.RUnlock()
	return s.VisibleProperties()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
