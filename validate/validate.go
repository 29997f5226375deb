// Package validate checks JSON values against schema documents and reports
// diagnostics as (instance path, message) pairs.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reoring/jsontree/repository"
	"github.com/reoring/jsontree/schema"
)

const rootURL = "mem://jsontree/root.json"

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Path    string // JSON Pointer of the offending value ("" for the root).
	Keyword string // Keyword location inside the schema.
	Message string
}

// Diagnostics is a list of findings that implements error.
type Diagnostics []Diagnostic

// Error summarizes the first few diagnostics.
func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(ds)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %q", ds[i].Message, ds[i].Path)
	}
	if len(ds) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(ds))
	}
	return b.String()
}

// Message aggregates diagnostics into one advisory text, one
// "<path>: <message>" line per finding. It returns "" for no findings.
func Message(ds []Diagnostic) string {
	if len(ds) == 0 {
		return ""
	}
	b := &strings.Builder{}
	for i, d := range ds {
		if i > 0 {
			b.WriteByte('\n')
		}
		if d.Path != "" {
			b.WriteString(d.Path)
			b.WriteString(": ")
		}
		b.WriteString(d.Message)
	}
	return b.String()
}

// Draft names a JSON Schema draft.
type Draft int

// Supported drafts.
const (
	Draft4    Draft = 4
	Draft6    Draft = 6
	Draft7    Draft = 7
	Draft2019 Draft = 2019
	Draft2020 Draft = 2020
)

func (d Draft) jsonschema() *jsonschema.Draft {
	switch d {
	case Draft4:
		return jsonschema.Draft4
	case Draft6:
		return jsonschema.Draft6
	case Draft2019:
		return jsonschema.Draft2019
	case Draft2020:
		return jsonschema.Draft2020
	default:
		return jsonschema.Draft7
	}
}

// Validator validates values with santhosh-tekuri/jsonschema. External
// references met while compiling are loaded through a resolver set, so the
// same "default:" and file references the repository understands work here.
type Validator struct {
	draft     Draft
	resolvers repository.ResolverSet
}

// Option configures a Validator.
type Option func(*Validator)

// WithDraft selects the draft used for schemas without $schema.
func WithDraft(d Draft) Option { return func(v *Validator) { v.draft = d } }

// WithResolvers sets the resolver set used for external references.
func WithResolvers(rs repository.ResolverSet) Option {
	return func(v *Validator) { v.resolvers = rs }
}

// New returns a Validator (draft 7 unless configured).
func New(opts ...Option) *Validator {
	v := &Validator{draft: Draft7}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetResolvers replaces the resolver set.
func (v *Validator) SetResolvers(rs repository.ResolverSet) { v.resolvers = rs }

// Validate checks value against s. A nil schema accepts everything. The
// returned error reports schema compilation problems; findings are returned
// as diagnostics.
func (v *Validator) Validate(ctx context.Context, s schema.Schema, value any) ([]Diagnostic, error) {
	if s == nil {
		return nil, nil
	}
	doc, err := schema.Canonical(s)
	if err != nil {
		return nil, fmt.Errorf("validate: encode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = v.draft.jsonschema()
	c.LoadURL = func(u string) (io.ReadCloser, error) { return v.load(ctx, u) }
	if err := c.AddResource(rootURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("validate: add schema: %w", err)
	}
	compiled, err := c.Compile(rootURL)
	if err != nil {
		return nil, fmt.Errorf("validate: compile schema: %w", err)
	}
	inst, err := jsonValue(value)
	if err != nil {
		return nil, err
	}
	err = compiled.Validate(inst)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("validate: %w", err)
	}
	var out []Diagnostic
	collect(verr, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (v *Validator) load(ctx context.Context, u string) (io.ReadCloser, error) {
	if v.resolvers == nil {
		return nil, fmt.Errorf("validate: no resolver for %s", u)
	}
	s, err := v.resolvers.Read(ctx, u)
	if err != nil {
		return nil, err
	}
	data, err := schema.Canonical(s)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// collect flattens the error tree into its leaves.
func collect(e *jsonschema.ValidationError, out *[]Diagnostic) {
	if len(e.Causes) == 0 {
		*out = append(*out, Diagnostic{Path: e.InstanceLocation, Keyword: e.KeywordLocation, Message: e.Message})
		return
	}
	for _, c := range e.Causes {
		collect(c, out)
	}
}

// jsonValue converts value into the shapes the validator expects by a JSON
// round trip (Go integer kinds, typed slices, structs).
func jsonValue(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("validate: encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("validate: decode value: %w", err)
	}
	return out, nil
}
