package repository

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/reoring/jsontree/schema"
)

// DefaultResolver serves "default:<name>" and "default://<name>" references
// from a repository, without dereferencing the target.
type DefaultResolver struct {
	Repo Repository
}

// Priority implements Resolver.
func (DefaultResolver) Priority() int { return 1 }

// CanHandle implements Resolver.
func (DefaultResolver) CanHandle(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "default:")
}

// Read implements Resolver.
func (r DefaultResolver) Read(ctx context.Context, uri string) (schema.Schema, error) {
	name := DefaultName(uri)
	if name == "" || r.Repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	s, err := r.Repo.RetrieveSchema(ctx, name, false)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	return s, nil
}

// DefaultName extracts the logical schema name of a default: reference.
func DefaultName(uri string) string {
	uri, _ = schema.SplitRef(uri)
	if len(uri) < len("default:") {
		return ""
	}
	name := uri[len("default:"):]
	return strings.TrimPrefix(name, "//")
}

// FileResolver serves file: URIs from the local file system.
type FileResolver struct{}

// Priority implements Resolver.
func (FileResolver) Priority() int { return 10 }

// CanHandle implements Resolver.
func (FileResolver) CanHandle(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "file:")
}

// Read implements Resolver.
func (FileResolver) Read(ctx context.Context, uri string) (schema.Schema, error) {
	uri, _ = schema.SplitRef(uri)
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("repository: invalid file URI %q: %w", uri, err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, err
	}
	return decodeDocument(p, data)
}

// FSResolver serves scheme-less relative references ("item.json",
// "defs/common.yaml") from a file system, typically the directory a Dir
// repository was loaded from.
type FSResolver struct {
	FS fs.FS
}

// Priority implements Resolver.
func (FSResolver) Priority() int { return 5 }

// CanHandle implements Resolver.
func (r FSResolver) CanHandle(uri string) bool {
	if r.FS == nil {
		return false
	}
	doc, _ := schema.SplitRef(uri)
	if doc == "" || strings.Contains(doc, ":") {
		return false
	}
	return fs.ValidPath(path.Clean(doc))
}

// Read implements Resolver.
func (r FSResolver) Read(ctx context.Context, uri string) (schema.Schema, error) {
	doc, _ := schema.SplitRef(uri)
	p := path.Clean(doc)
	data, err := fs.ReadFile(r.FS, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, uri, err)
	}
	return decodeDocument(p, data)
}

// HTTPResolver serves http:// and https:// references.
type HTTPResolver struct {
	Client *http.Client
}

// Priority implements Resolver.
func (HTTPResolver) Priority() int { return 20 }

// CanHandle implements Resolver.
func (HTTPResolver) CanHandle(uri string) bool {
	l := strings.ToLower(uri)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Read implements Resolver.
func (r HTTPResolver) Read(ctx context.Context, uri string) (schema.Schema, error) {
	doc, _ := schema.SplitRef(uri)
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: fetch %s: %w", doc, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, doc)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository: fetch %s: unexpected status %d", doc, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	name := doc
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		name = "response.yaml"
	}
	return decodeDocument(name, data)
}

// decodeDocument decodes a schema file by extension: YAML for .yaml/.yml
// (first object document, CRDs unwrapped), JSON otherwise.
func decodeDocument(name string, data []byte) (schema.Schema, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		docs, err := schema.DecodeYAML(data)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("repository: %s: no object document", name)
		}
		if s, _, ok := schema.UnwrapCRD(docs[0]); ok {
			return s, nil
		}
		return docs[0], nil
	default:
		return schema.DecodeJSON(data)
	}
}

var (
	_ Resolver = DefaultResolver{}
	_ Resolver = FileResolver{}
	_ Resolver = FSResolver{}
	_ Resolver = HTTPResolver{}
)
