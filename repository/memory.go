package repository

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsontree/schema"
)

// Memory is an in-memory repository. It is the built-in default repository
// when created with NewBuiltin.
type Memory struct {
	mu        sync.RWMutex
	docs      map[string]schema.Schema
	order     []string
	resolvers ResolverSet
	logger    *log.Logger
}

// NewMemory returns an empty repository whose resolver set holds a "default"
// resolver reading from the repository itself, a "file" resolver, and any
// resolvers passed as options.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	m := &Memory{docs: map[string]schema.Schema{}, logger: o.logger}
	m.resolvers = ResolverSet{
		"default": DefaultResolver{Repo: m},
		"file":    FileResolver{},
	}
	for n, r := range o.resolvers {
		m.resolvers[n] = r
	}
	return m
}

// builtinTypes lists the type schemas of the default repository, in the order
// they are offered as default children.
var builtinTypes = []string{
	schema.TypeString,
	schema.TypeInteger,
	schema.TypeNumber,
	schema.TypeBoolean,
	schema.TypeObject,
	schema.TypeArray,
}

// NewBuiltin returns the default repository: one minimal schema per JSON type.
func NewBuiltin(opts ...Option) *Memory {
	m := NewMemory(opts...)
	for _, t := range builtinTypes {
		m.Add(t, schema.Schema{"type": t, "title": t})
	}
	return m
}

// Add stores (or replaces) a document under name.
func (m *Memory) Add(name string, s schema.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; !ok {
		m.order = append(m.order, name)
	}
	m.docs[name] = s
}

// Remove deletes the document stored under name.
func (m *Memory) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; !ok {
		return
	}
	delete(m.docs, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// RetrieveSchema implements Repository. Bundling failures are logged and the
// undereferenced document is returned.
func (m *Memory) RetrieveSchema(ctx context.Context, name string, dereference bool) (schema.Schema, error) {
	m.mu.RLock()
	doc := m.docs[name]
	m.mu.RUnlock()
	if doc == nil {
		return nil, nil
	}
	if !dereference {
		return doc, nil
	}
	bundled, err := Bundle(ctx, doc, m.Resolvers())
	if err != nil {
		m.logger.Warn("bundle failed, returning undereferenced schema", "name", name, "err", err)
		return doc, nil
	}
	return bundled, nil
}

// RetrieveTypes implements Repository; names are returned in insertion order.
func (m *Memory) RetrieveTypes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

// Resolvers implements Repository.
func (m *Memory) Resolvers() ResolverSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolvers.Merge(nil)
}

// SetResolver registers (or replaces) a resolver.
func (m *Memory) SetResolver(name string, r Resolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[name] = r
}

var _ Repository = (*Memory)(nil)
