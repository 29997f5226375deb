package repository

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsontree/schema"
)

// Composite consults a custom repository before a built-in one. Failures of
// the custom repository are logged and answered by the built-in repository.
type Composite struct {
	custom  Repository
	builtin Repository
	logger  *log.Logger
}

// NewComposite composes custom (may be nil) over builtin.
func NewComposite(custom, builtin Repository, opts ...Option) *Composite {
	o := buildOptions(opts)
	return &Composite{custom: custom, builtin: builtin, logger: o.logger}
}

// Custom returns the custom repository, or nil.
func (c *Composite) Custom() Repository { return c.custom }

// Builtin returns the built-in repository.
func (c *Composite) Builtin() Repository { return c.builtin }

// RetrieveSchema implements Repository.
func (c *Composite) RetrieveSchema(ctx context.Context, name string, dereference bool) (schema.Schema, error) {
	if c.custom != nil {
		s, err := c.custom.RetrieveSchema(ctx, name, dereference)
		if err != nil {
			c.logger.Warn("retrieve schema failed", "name", name, "err", err)
		} else if s != nil {
			return s, nil
		}
	}
	if c.builtin == nil {
		return nil, nil
	}
	s, err := c.builtin.RetrieveSchema(ctx, name, dereference)
	if err != nil {
		c.logger.Warn("retrieve schema failed", "name", name, "err", err)
		return nil, nil
	}
	return s, nil
}

// RetrieveTypes implements Repository: the union of both type lists, custom
// names first, duplicates removed.
func (c *Composite) RetrieveTypes(ctx context.Context) ([]string, error) {
	var types []string
	seen := map[string]bool{}
	add := func(r Repository) {
		if r == nil {
			return
		}
		ts, err := r.RetrieveTypes(ctx)
		if err != nil {
			c.logger.Warn("retrieve types failed", "err", err)
			return
		}
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	add(c.custom)
	add(c.builtin)
	return types, nil
}

// Resolvers implements Repository: the custom set, with built-in resolvers
// filling every name the custom repository does not supply.
func (c *Composite) Resolvers() ResolverSet {
	var builtin ResolverSet
	if c.builtin != nil {
		builtin = c.builtin.Resolvers()
	}
	if c.custom == nil {
		return builtin.Merge(nil)
	}
	return c.custom.Resolvers().Merge(builtin)
}

var _ Repository = (*Composite)(nil)
