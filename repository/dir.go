package repository

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/reoring/jsontree/schema"
)

// LoadDir builds a Memory repository from the schema files of fsys.
//
// *.json, *.yaml and *.yml files are loaded; the logical name of a document
// is its base name without extension. Kubernetes CustomResourceDefinitions
// are unwrapped to their openAPIV3Schema and named by spec.names.kind, which
// allows multi-document CRD bundles. Duplicate keys in JSON files are logged
// as warnings. The repository gets an "fs" resolver so documents can $ref
// each other by relative path.
func LoadDir(ctx context.Context, fsys fs.FS, opts ...Option) (*Memory, error) {
	m := NewMemory(append(opts, WithResolver("fs", FSResolver{FS: fsys}))...)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		base := strings.TrimSuffix(path.Base(p), path.Ext(p))
		switch ext {
		case ".json":
			return m.loadJSON(fsys, p, base)
		case ".yaml", ".yml":
			return m.loadYAML(fsys, p, base)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) loadJSON(fsys fs.FS, p, name string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}
	warnings, err := schema.DuplicateKeys(data)
	if err != nil {
		return fmt.Errorf("repository: %s: %w", p, err)
	}
	for _, w := range warnings {
		m.logger.Warn("duplicate key in schema file", "file", p, "detail", w)
	}
	s, err := schema.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("repository: %s: %w", p, err)
	}
	m.Add(name, s)
	return nil
}

func (m *Memory) loadYAML(fsys fs.FS, p, name string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}
	docs, err := schema.DecodeYAML(data)
	if err != nil {
		return fmt.Errorf("repository: %s: %w", p, err)
	}
	plain := 0
	for _, doc := range docs {
		if s, kind, ok := schema.UnwrapCRD(doc); ok {
			m.Add(kind, s)
			continue
		}
		if plain > 0 {
			m.logger.Warn("extra document in schema file ignored", "file", p)
			continue
		}
		m.Add(name, doc)
		plain++
	}
	return nil
}
