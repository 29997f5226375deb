package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// EscapeToken escapes a JSON Pointer reference token per RFC 6901
// ('~' -> '~0', '/' -> '~1').
func EscapeToken(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~", "~0"), "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}

// Pointer joins unescaped tokens into a JSON Pointer. The root is "".
func Pointer(tokens ...string) string {
	if len(tokens) == 0 {
		return ""
	}
	b := &strings.Builder{}
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(t))
	}
	return b.String()
}

// SplitPointer splits a JSON Pointer (with or without a leading '#') into
// unescaped tokens.
func SplitPointer(ptr string) ([]string, error) {
	ptr = strings.TrimPrefix(ptr, "#")
	if ptr == "" {
		return nil, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("schema: invalid JSON pointer %q", ptr)
	}
	parts := strings.Split(ptr[1:], "/")
	for i, p := range parts {
		parts[i] = UnescapeToken(p)
	}
	return parts, nil
}

// Step descends one token into a decoded document.
func Step(cur any, tok string) (any, bool) {
	switch t := cur.(type) {
	case map[string]any:
		v, ok := t[tok]
		return v, ok
	case Schema:
		v, ok := t[tok]
		return v, ok
	case []any:
		i, err := strconv.Atoi(tok)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return t[i], true
	}
	return nil, false
}

// Resolve evaluates a JSON Pointer against doc.
func Resolve(doc any, ptr string) (any, error) {
	toks, err := SplitPointer(ptr)
	if err != nil {
		return nil, err
	}
	cur := doc
	for i, tok := range toks {
		next, ok := Step(cur, tok)
		if !ok {
			return nil, fmt.Errorf("schema: pointer %q: no value at %q", ptr, Pointer(toks[:i+1]...))
		}
		cur = next
	}
	return cur, nil
}

// SplitRef splits a reference into its document URI and fragment pointer.
// "#/definitions/a" yields ("", "/definitions/a").
func SplitRef(ref string) (uri, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}
