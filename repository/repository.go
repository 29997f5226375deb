// Package repository resolves schema documents by logical name and provides
// the pluggable $ref resolvers used while bundling and dereferencing them.
//
// Documents returned by a Repository are templates: callers clone them before
// attaching hooks or resolving references (Bundle and the engine's processor
// both do).
package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsontree/schema"
)

// ErrNoResolver is returned when no registered resolver handles a URI.
var ErrNoResolver = errors.New("repository: no resolver for reference")

// ErrNotFound is returned by resolvers when the referenced document does not
// exist. Repositories report unknown names as (nil, nil) instead.
var ErrNotFound = errors.New("repository: schema not found")

// RefError reports a $ref that could not be bundled.
type RefError struct {
	Ref string
	Err error
}

func (e *RefError) Error() string { return "repository: bundle " + e.Ref + ": " + e.Err.Error() }

func (e *RefError) Unwrap() error { return e.Err }

// Repository resolves schemas by logical name.
type Repository interface {
	// RetrieveSchema looks up name. Unknown names yield (nil, nil). When
	// dereference is true the external $refs of the document are bundled.
	RetrieveSchema(ctx context.Context, name string, dereference bool) (schema.Schema, error)
	// RetrieveTypes lists the known schema names.
	RetrieveTypes(ctx context.Context) ([]string, error)
	// Resolvers returns the resolver set used for $ref URIs.
	Resolvers() ResolverSet
}

// Resolver fetches the document behind a $ref URI.
type Resolver interface {
	// Priority orders resolvers; lower values are consulted first.
	Priority() int
	CanHandle(uri string) bool
	Read(ctx context.Context, uri string) (schema.Schema, error)
}

// ResolverSet is a name-keyed set of resolvers. Names identify the scheme a
// resolver serves ("default", "file", "http", ...), which is what merging
// between repositories keys on.
type ResolverSet map[string]Resolver

// Select returns the resolver that handles uri, preferring lower priorities.
// Ties are broken by resolver name.
func (rs ResolverSet) Select(uri string) Resolver {
	names := make([]string, 0, len(rs))
	for n, r := range rs {
		if r != nil && r.CanHandle(uri) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := rs[names[i]].Priority(), rs[names[j]].Priority()
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return rs[names[0]]
}

// Read resolves uri through the selected resolver.
func (rs ResolverSet) Read(ctx context.Context, uri string) (schema.Schema, error) {
	r := rs.Select(uri)
	if r == nil {
		return nil, ErrNoResolver
	}
	return r.Read(ctx, uri)
}

// Merge returns a new set holding rs plus every resolver of fallback whose
// name rs does not supply.
func (rs ResolverSet) Merge(fallback ResolverSet) ResolverSet {
	out := make(ResolverSet, len(rs)+len(fallback))
	for n, r := range fallback {
		out[n] = r
	}
	for n, r := range rs {
		if r != nil {
			out[n] = r
		}
	}
	return out
}

// Option configures repositories and resolvers built by this package.
type Option func(*options)

type options struct {
	logger    *log.Logger
	resolvers ResolverSet
}

// WithLogger sets the logger used for soft failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResolver registers an additional resolver under name.
func WithResolver(name string, r Resolver) Option {
	return func(o *options) {
		if o.resolvers == nil {
			o.resolvers = ResolverSet{}
		}
		o.resolvers[name] = r
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Default().WithPrefix("jsontree/repository")}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
