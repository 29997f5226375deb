// Package jsontree builds and edits a tree view of a JSON value constrained
// by a JSON-Schema-like document.
//
// An Engine resolves schemas through a repository, prepares them (hooks and
// $ref resolution), and builds Nodes from values. Nodes own the structural
// edits and keep the underlying JSON value in sync. A Store ties one tree to
// a root schema and revalidates the value after every edit.
package jsontree

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/reoring/jsontree/config"
	"github.com/reoring/jsontree/i18n"
	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
	"github.com/reoring/jsontree/validate"
)

// Engine holds what tree building needs: the repositories, the hook registry
// and side-table, schema equality and the logger.
type Engine struct {
	mu       sync.RWMutex
	repo     *repository.Composite
	custom   repository.Repository
	builtin  repository.Repository
	registry *Registry
	table    *HookTable
	proc     *Processor
	logger   *log.Logger
	equal    schema.EqualFunc
	newID    func() string
	draft    validate.Draft

	// inferred caches the prepared schemas of runtime value types.
	inferred map[string]schema.Schema
	// merged caches allOf merges per composing schema.
	merged map[uintptr]mergedAllOf
}

type mergedAllOf struct {
	src    schema.Schema
	merged schema.Schema
}

// Option configures an Engine.
type Option func(*Engine)

// WithRepository sets the custom repository consulted before the built-in one.
func WithRepository(r repository.Repository) Option {
	return func(e *Engine) { e.custom = r }
}

// WithRegistry sets the hook registry (DefaultRegistry otherwise).
func WithRegistry(r *Registry) Option { return func(e *Engine) { e.registry = r } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithEquality sets the schema equality used when matching children.
func WithEquality(eq schema.EqualFunc) Option { return func(e *Engine) { e.equal = eq } }

// WithIDFunc sets the node id generator.
func WithIDFunc(f func() string) Option { return func(e *Engine) { e.newID = f } }

// WithDraft sets the JSON Schema draft of stores created from the engine.
func WithDraft(d validate.Draft) Option { return func(e *Engine) { e.draft = d } }

// New returns an Engine backed by the built-in repository.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: DefaultRegistry,
		table:    NewHookTable(),
		logger:   log.Default().WithPrefix("jsontree"),
		equal:    schema.TextEqual,
		newID:    uuid.NewString,
		draft:    validate.Draft7,
		inferred: map[string]schema.Schema{},
		merged:   map[uintptr]mergedAllOf{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.builtin = repository.NewBuiltin(repository.WithLogger(e.logger))
	e.repo = repository.NewComposite(e.custom, e.builtin, repository.WithLogger(e.logger))
	e.proc = NewProcessor(e.registry, e.table, e.logger)
	return e
}

// NewEngineFromConfig builds an engine from cfg: log level, message
// language, equality mode, validation draft and the schema directories of
// the custom repository.
func NewEngineFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.Default().WithPrefix("jsontree")
	logger.SetLevel(cfg.Level())
	i18n.SetLanguage(cfg.Language)

	base := []Option{WithLogger(logger), WithDraft(validate.Draft(cfg.Validation.Draft))}
	if cfg.Equality == config.EqualityDeep {
		base = append(base, WithEquality(schema.DeepEqual))
	}
	if len(cfg.Repository.Dirs) > 0 {
		custom, err := loadDirs(ctx, cfg.Repository.Dirs, logger)
		if err != nil {
			return nil, err
		}
		base = append(base, WithRepository(custom))
	}
	return New(append(base, opts...)...), nil
}

// loadDirs merges the documents of every directory into one repository.
// Each directory keeps its own relative-path resolver.
func loadDirs(ctx context.Context, dirs []string, logger *log.Logger) (*repository.Memory, error) {
	custom := repository.NewMemory(repository.WithLogger(logger))
	for i, dir := range dirs {
		fsys := os.DirFS(dir)
		m, err := repository.LoadDir(ctx, fsys, repository.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("jsontree: load %s: %w", dir, err)
		}
		names, _ := m.RetrieveTypes(ctx)
		for _, n := range names {
			s, _ := m.RetrieveSchema(ctx, n, false)
			custom.Add(n, s)
		}
		custom.SetResolver(fmt.Sprintf("fs%d", i), repository.FSResolver{FS: fsys})
		logger.Debug("loaded schema directory", "dir", dir, "schemas", len(names))
	}
	return custom, nil
}

// Repository returns the composite repository.
func (e *Engine) Repository() *repository.Composite {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.repo
}

// SetRepository replaces the custom repository; nil leaves only the built-in
// one. Cached inferred schemas are dropped.
func (e *Engine) SetRepository(r repository.Repository) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.custom = r
	e.repo = repository.NewComposite(r, e.builtin, repository.WithLogger(e.logger))
	e.inferred = map[string]schema.Schema{}
}

// Registry returns the hook registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Hooks returns the hook side-table.
func (e *Engine) Hooks() *HookTable { return e.table }

// Logger returns the engine logger.
func (e *Engine) Logger() *log.Logger { return e.logger }

// Draft returns the JSON Schema draft stores should validate with.
func (e *Engine) Draft() validate.Draft { return e.draft }

// Dereference prepares s with the resolvers of the current repository.
func (e *Engine) Dereference(ctx context.Context, s schema.Schema) (schema.Schema, error) {
	return e.proc.Dereference(ctx, s, e.Repository().Resolvers())
}

// RetrieveSchema returns the bundled schema registered under name, or nil.
func (e *Engine) RetrieveSchema(ctx context.Context, name string) schema.Schema {
	s, err := e.Repository().RetrieveSchema(ctx, name, true)
	if err != nil {
		e.logger.Warn("retrieve schema failed", "name", name, "err", err)
		return nil
	}
	return s
}

// RetrieveTypes lists the known type names.
func (e *Engine) RetrieveTypes(ctx context.Context) []string {
	types, err := e.Repository().RetrieveTypes(ctx)
	if err != nil {
		e.logger.Warn("retrieve types failed", "err", err)
	}
	return types
}

// inferSchema returns the prepared schema of the repository type named after
// the runtime type of value, or nil.
func (e *Engine) inferSchema(ctx context.Context, value any) schema.Schema {
	t := valueType(value)
	switch t {
	case schema.TypeNull, typeUndefined:
		return nil
	}
	e.mu.RLock()
	s, ok := e.inferred[t]
	e.mu.RUnlock()
	if ok {
		return s
	}
	raw := e.RetrieveSchema(ctx, t)
	if raw == nil {
		return nil
	}
	s, err := e.Dereference(ctx, raw)
	if err != nil {
		e.logger.Warn("prepare inferred schema failed", "type", t, "err", err)
		return nil
	}
	e.mu.Lock()
	e.inferred[t] = s
	e.mu.Unlock()
	return s
}

// mergeAllOf returns the shallow allOf merge of s, the same map for the same
// s so that candidates built from it share their schema.
func (e *Engine) mergeAllOf(s schema.Schema) schema.Schema {
	id := schema.ID(s)
	e.mu.RLock()
	m, ok := e.merged[id]
	e.mu.RUnlock()
	if ok {
		return m.merged
	}
	merged := schema.MergeAllOf(s.AllOf())
	e.table.Attach(merged, e.registry)
	e.mu.Lock()
	e.merged[id] = mergedAllOf{src: s, merged: merged}
	e.mu.Unlock()
	return merged
}

// Release drops the hook entries and allOf merges of the schema objects
// reachable from the nodes of old that no node of keep and no cached inferred
// schema reaches. Nodes built from released schemas keep working without
// their hooks.
func (e *Engine) Release(old []*Node, keep ...*Node) {
	live := map[uintptr]bool{}
	e.mu.RLock()
	for _, s := range e.inferred {
		collectSchemas(map[string]any(s), live, nil)
	}
	e.mu.RUnlock()
	for _, n := range keep {
		collectNodeSchemas(n, live, nil)
	}
	dead := map[uintptr]bool{}
	for _, n := range old {
		collectNodeSchemas(n, dead, live)
	}
	if len(dead) == 0 {
		return
	}
	e.mu.Lock()
	for id, m := range e.merged {
		if dead[id] {
			delete(e.merged, id)
			collectSchemas(map[string]any(m.merged), dead, live)
		}
	}
	e.mu.Unlock()
	e.table.drop(dead)
	e.logger.Debug("released schemas", "count", len(dead))
}

func collectNodeSchemas(n *Node, into, skip map[uintptr]bool) {
	if n == nil {
		return
	}
	n.Walk(func(x *Node) bool {
		if x.schema != nil {
			collectSchemas(map[string]any(x.schema), into, skip)
		}
		return true
	})
}

// collectSchemas adds the identity of every map reachable from v to into,
// not descending into maps listed in skip.
func collectSchemas(v any, into, skip map[uintptr]bool) {
	switch t := v.(type) {
	case schema.Schema:
		collectSchemas(map[string]any(t), into, skip)
	case map[string]any:
		id := schema.ID(t)
		if t == nil || into[id] || skip[id] {
			return
		}
		into[id] = true
		for _, e := range t {
			collectSchemas(e, into, skip)
		}
	case []any:
		for _, e := range t {
			collectSchemas(e, into, skip)
		}
	}
}

// runHooks invokes the hooks attached to s for call.Stage. Errors and panics
// are logged and never returned.
func (e *Engine) runHooks(ctx context.Context, s schema.Schema, call *HookCall) {
	call.table = e.table
	for _, h := range e.table.hooks(s, call.Stage) {
		e.invoke(ctx, h, call)
	}
}

func (e *Engine) invoke(ctx context.Context, h namedHook, call *HookCall) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(i18n.T("hook_failed", map[string]string{"hook": h.name}), "stage", call.Stage, "panic", r)
		}
	}()
	if err := h.fn(ctx, call); err != nil {
		e.logger.Warn(i18n.T("hook_failed", map[string]string{"hook": h.name}), "stage", call.Stage, "err", err)
	}
}
