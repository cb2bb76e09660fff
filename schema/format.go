package schema

// Strict deep-copies a raw JSON-schema-like structure and injects
// "additionalProperties": false into every object node (and "required" set to
// every declared property when absent), the shape the library requires so a
// model cannot silently smuggle unexpected fields into a structured response.
// Non-object/array nodes and already-strict schemas pass through unchanged.
func Strict(raw any) any {
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+1)
		for k, val := range v {
			out[k] = Strict(val)
		}
		if typ, _ := out["type"].(string); typ == "object" || out["properties"] != nil {
			if _, ok := out["additionalProperties"]; !ok {
				out["additionalProperties"] = false
			}
			if _, ok := out["required"]; !ok {
				if props, ok := out["properties"].(map[string]any); ok {
					required := make([]any, 0, len(props))
					for name := range props {
						required = append(required, name)
					}
					out["required"] = required
				}
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Strict(item)
		}
		return out
	default:
		return v
	}
}
