package schema

// MergeAllOf shallow-merges allOf branches into a new schema. Keys of later
// branches override keys of earlier ones. This is not a constraint
// intersection: a nested properties map of a later branch replaces the whole
// properties map of an earlier one.
func MergeAllOf(branches []Schema) Schema {
	out := Schema{}
	for _, b := range branches {
		for k, v := range b {
			out[k] = v
		}
	}
	return out
}

// MergeRef merges a resolved $ref target under the explicit sibling keys of
// the ref object. Siblings win; "$ref" itself is dropped.
func MergeRef(ref Schema, target Schema) Schema {
	out := make(Schema, len(ref)+len(target))
	for k, v := range target {
		out[k] = v
	}
	for k, v := range ref {
		if k == "$ref" {
			continue
		}
		out[k] = v
	}
	return out
}

// OnlyRef reports whether the object carries nothing but a $ref.
func OnlyRef(s Schema) bool {
	_, ok := s["$ref"].(string)
	return ok && len(s) == 1
}
