package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DecodeJSON decodes a JSON schema document. Numbers decode as float64.
func DecodeJSON(data []byte) (Schema, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}
	s, ok := As(root)
	if !ok {
		return nil, errors.New("schema: JSON document is not an object")
	}
	return s, nil
}

// DecodeYAML decodes every document of a (possibly multi-document) YAML
// stream into JSON-shaped maps. Non-object documents are skipped.
func DecodeYAML(data []byte) ([]Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Schema
	for {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("schema: invalid YAML: %w", err)
		}
		if m := yamlAnyToStringMap(node); m != nil {
			out = append(out, Schema(m))
		}
	}
	return out, nil
}

// NormalizeValue converts YAML-decoded values (which may contain map[any]any
// and Go integer kinds) into JSON-shaped values.
func NormalizeValue(v any) any { return yamlNormalizeValue(v) }

// yamlAnyToStringMap converts YAML-decoded values into map[string]any
// recursively. Non-map roots return nil.
func yamlAnyToStringMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = yamlNormalizeValue(vv)
		}
		return out
	default:
		return nil
	}
}

func yamlNormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any:
		return yamlAnyToStringMap(t)
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalizeValue(t[i])
		}
		return arr
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}
