package schemaform

// Value is a live plugin configuration: a mapping from property name to a
// canonical value whose runtime shape matches the property's declared type.
// Mutations always replace the whole map, never patch it in place, so a
// caller holding a Value never observes a torn state.
type Value map[string]any

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	for k, val := range v {
		out[k] = deepCopy(val)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case Value:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// isEmpty reports whether a field value counts as missing for required
// checks: absent, nil, or the empty string. An empty array or object is a
// present value.
func isEmpty(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
