package schemaform

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// ValidationError is a single human-readable complaint about one field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldState carries the transient editing state of one field. Object
// fields are edited through a raw JSON text buffer; the buffer is retained
// here while it does not parse, so the canonical value is never clobbered
// by a half-typed edit.
type FieldState struct {
	EditedText string
	Editing    bool
	Dirty      bool
}

// Validate checks a configuration value against its schema and returns the
// errors in property declaration order. For a single field, a required
// violation comes before any range or format violation. Validate is pure:
// it never mutates its inputs and never fails.
func Validate(s *Schema, v Value, fields map[string]*FieldState) []ValidationError {
	var errs []ValidationError

	add := func(name, msg string) {
		errs = append(errs, ValidationError{Field: name, Message: msg})
	}

	for i := range s.Properties {
		p := &s.Properties[i]
		val, present := v[p.Name]
		title := p.DisplayTitle()

		if p.Required && isEmpty(val, present) {
			add(p.Name, title+" is required")
			continue
		}

		if p.IsNumeric() && present && val != nil {
			if f, ok := toFloat(val); ok {
				if p.Minimum != nil && f < *p.Minimum {
					add(p.Name, fmt.Sprintf("%s must be at least %s", title, formatBound(*p.Minimum)))
				} else if p.Maximum != nil && f > *p.Maximum {
					add(p.Name, fmt.Sprintf("%s must be less than or equal to %s", title, formatBound(*p.Maximum)))
				}
			}
		}

		if p.Type == TypeObject {
			// A retained buffer means the text never committed, either
			// because it does not parse or because it parses to something
			// other than an object. Both read as invalid JSON for the field.
			if fs := fields[p.Name]; fs != nil && fs.Editing {
				if _, ok := ParseObject(fs.EditedText); !ok {
					add(p.Name, title+" must be valid JSON")
				}
			}
		}

		if p.Type == TypeString && p.Format == "url" {
			if str, ok := val.(string); ok && str != "" && !isAbsoluteURL(str) {
				add(p.Name, title+" must be a valid URL")
			}
		}
	}

	return errs
}

// Messages flattens validation errors to the plain ordered string list the
// form surface displays.
func Messages(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// toFloat extracts a numeric value from the shapes a canonical value can
// take after coercion or JSON decoding.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
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
	default:
		return 0, false
	}
}

// formatBound renders a numeric constraint without a trailing ".0" for
// whole numbers, matching how the bound was written in the schema.
func formatBound(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
