package schemaform

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CoerceField maps a raw edited representation onto the canonical value
// for a property. Coercion never fails: malformed input degrades to a safe
// value (nil for numerics, false for booleans) so required checks and
// revalidation behave predictably while the operator is mid-keystroke.
func CoerceField(p *Property, raw any) any {
	switch p.Type {
	case TypeInteger:
		f, ok := coerceNumber(raw)
		if !ok {
			return nil
		}
		return int64(f)
	case TypeNumber:
		f, ok := coerceNumber(raw)
		if !ok {
			return nil
		}
		return f
	case TypeBoolean:
		return coerceBool(raw)
	case TypeArray:
		arr, ok := raw.([]any)
		if !ok {
			return []any{}
		}
		return deepCopy(arr)
	case TypeObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return map[string]any{}
		}
		return deepCopy(m)
	default:
		// string, password, textarea, url: identity. Only presentation
		// differs between the formats.
		if raw == nil {
			return ""
		}
		if s, ok := raw.(string); ok {
			return s
		}
		return raw
	}
}

// coerceNumber parses the editable representation of a numeric field.
// Empty or non-numeric text yields no value rather than NaN.
func coerceNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceBool(raw any) bool {
	switch b := raw.(type) {
	case bool:
		return b
	case string:
		v, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && v
	default:
		return false
	}
}

// AppendArrayItem returns arr with one default-valued item of the declared
// item type appended. Items are never nil.
func AppendArrayItem(p *Property, arr []any) []any {
	item := p.Items
	if item == nil {
		item = &Property{Type: TypeString}
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr...)
	return append(out, defaultFieldValue(item))
}

// RemoveArrayItem returns arr without the item at index i, preserving the
// relative order of the rest. Out-of-range indexes leave arr untouched.
// Removal is permitted down to zero items.
func RemoveArrayItem(arr []any, i int) []any {
	if i < 0 || i >= len(arr) {
		return arr
	}
	out := make([]any, 0, len(arr)-1)
	out = append(out, arr[:i]...)
	return append(out, arr[i+1:]...)
}

// SetArrayItem returns arr with the item at index i replaced by the coded
// form of raw.
func SetArrayItem(p *Property, arr []any, i int, raw any) []any {
	if i < 0 || i >= len(arr) {
		return arr
	}
	item := p.Items
	if item == nil {
		item = &Property{Type: TypeString}
	}
	out := make([]any, len(arr))
	copy(out, arr)
	out[i] = CoerceField(item, raw)
	return out
}

// FormatObject pretty-prints the canonical value of an object field for
// display while the field is not actively edited.
func FormatObject(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParseObject attempts to commit an edited JSON buffer. The second return
// is false when the text does not parse, in which case the canonical value
// must be left alone and the buffer retained for display.
func ParseObject(text string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, true
}

// Option is one selectable literal of an enum field.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Options returns the selectable options for an enum field. An empty
// sentinel option leads the list only when the field is not required, so a
// required select cannot be cleared.
func Options(p *Property) []Option {
	if len(p.Enum) == 0 {
		return nil
	}
	opts := make([]Option, 0, len(p.Enum)+1)
	if !p.Required {
		opts = append(opts, Option{Value: "", Label: ""})
	}
	for _, e := range p.Enum {
		opts = append(opts, Option{Value: e, Label: optionLabel(e)})
	}
	return opts
}

func optionLabel(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatBound(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

// Step returns the spinner increment hint for a numeric field: 1 when the
// field is integral or its bound/current value is a whole number, else a
// fractional step.
func Step(p *Property, current any) float64 {
	if p.Type == TypeInteger {
		return 1
	}
	if p.Minimum != nil {
		if *p.Minimum == float64(int64(*p.Minimum)) {
			return 1
		}
		return 0.1
	}
	if f, ok := toFloat(current); ok && f != float64(int64(f)) {
		return 0.1
	}
	return 1
}
