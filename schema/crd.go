package schema

// UnwrapCRD extracts the openAPIV3Schema of a Kubernetes
// CustomResourceDefinition together with its spec.names.kind. It looks for
// spec.versions[].schema.openAPIV3Schema (preferring served=true), then falls
// back to spec.validation.openAPIV3Schema for legacy specs.
func UnwrapCRD(doc Schema) (Schema, string, bool) {
	if k, _ := doc["kind"].(string); k != "CustomResourceDefinition" {
		return nil, "", false
	}
	spec, ok := doc["spec"].(map[string]any)
	if !ok {
		return nil, "", false
	}
	var kind string
	if names, ok := spec["names"].(map[string]any); ok {
		kind, _ = names["kind"].(string)
	}
	if kind == "" {
		return nil, "", false
	}
	if vers, ok := spec["versions"].([]any); ok {
		var firstFound map[string]any
		for _, v := range vers {
			vm, _ := v.(map[string]any)
			if vm == nil {
				continue
			}
			served := true
			if sv, ok := vm["served"].(bool); ok {
				served = sv
			}
			sch, ok := vm["schema"].(map[string]any)
			if !ok {
				continue
			}
			oas, ok := sch["openAPIV3Schema"].(map[string]any)
			if !ok {
				continue
			}
			if served {
				return Schema(oas), kind, true
			}
			if firstFound == nil {
				firstFound = oas
			}
		}
		if firstFound != nil {
			return Schema(firstFound), kind, true
		}
	}
	if val, ok := spec["validation"].(map[string]any); ok {
		if oas, ok := val["openAPIV3Schema"].(map[string]any); ok {
			return Schema(oas), kind, true
		}
	}
	return nil, "", false
}
