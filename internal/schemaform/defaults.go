package schemaform

// DefaultValue synthesizes a baseline configuration for a schema. Each
// field takes its declared default when one exists, otherwise the zero
// value for its type.
func DefaultValue(s *Schema) Value {
	v := make(Value, len(s.Properties))
	for i := range s.Properties {
		p := &s.Properties[i]
		v[p.Name] = defaultFieldValue(p)
	}
	return v
}

// defaultFieldValue computes the seed value for a single property.
func defaultFieldValue(p *Property) any {
	if p.Default != nil {
		// Declared defaults pass through the codec so the stored shape
		// matches the field type (schema documents carry all numbers as
		// float64).
		if p.IsNumeric() {
			return CoerceField(p, p.Default)
		}
		return deepCopy(p.Default)
	}

	switch p.Type {
	case TypeInteger:
		if p.Minimum != nil && *p.Minimum > 0 {
			return int64(*p.Minimum)
		}
		return int64(0)
	case TypeNumber:
		if p.Minimum != nil && *p.Minimum > 0 {
			return *p.Minimum
		}
		return float64(0)
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}
