package schema

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type dupFrame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         []string
	index        int
	current      string
}

// DuplicateKeys reports object keys that occur more than once in a JSON
// document. A decoder keeps only the last occurrence, so duplicates in a
// schema file silently drop constraints; callers log the result as warnings.
// Each entry is "<pointer>: key '<name>' duplicated".
func DuplicateKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var warnings []string
	var stack []*dupFrame

	// afterValue marks the end of a value inside the enclosing container.
	afterValue := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		switch top.kind {
		case kindObject:
			top.expectingKey = true
		case kindArray:
			top.index++
		}
	}
	childPath := func() []string {
		if len(stack) == 0 {
			return nil
		}
		top := stack[len(stack)-1]
		p := append([]string{}, top.path...)
		if top.kind == kindObject {
			return append(p, top.current)
		}
		return append(p, strconv.Itoa(top.index))
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return warnings, err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, &dupFrame{kind: kindObject, keys: make(map[string]struct{}), expectingKey: true, path: childPath()})
			case '[':
				stack = append(stack, &dupFrame{kind: kindArray, path: childPath()})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				afterValue()
			}
		case string:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.kind == kindObject && top.expectingKey {
					if _, ok := top.keys[v]; ok {
						warnings = append(warnings, Pointer(top.path...)+": key '"+v+"' duplicated")
					}
					top.keys[v] = struct{}{}
					top.current = v
					top.expectingKey = false
					continue
				}
			}
			afterValue()
		default:
			afterValue()
		}
	}
	return warnings, nil
}
