package schemaform

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Type identifies the value kind a schema property declares. Dispatch on
// field types happens on this enum, never on the raw type string.
type Type int

const (
	TypeString Type = iota
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeArray
	TypeObject
)

// String returns the JSON schema spelling of the type.
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "string"
	}
}

// Property describes a single named field of a plugin configuration schema.
type Property struct {
	Name        string
	Type        Type
	Title       string
	Description string
	Format      string // "password", "url", "textarea", ... passed through opaquely
	Enum        []any  // closed literal set; empty means free-form
	Items       *Property
	Minimum     *float64
	Maximum     *float64
	Default     any
	Required    bool
}

// DisplayTitle returns the declared title, falling back to a humanized
// version of the property name.
func (p *Property) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return humanize(p.Name)
}

// IsNumeric reports whether the property holds an integer or number value.
func (p *Property) IsNumeric() bool {
	return p.Type == TypeInteger || p.Type == TypeNumber
}

// Schema is the parsed form of a plugin's configuration schema document.
// Property order is declaration order, which is also display order.
type Schema struct {
	Properties []Property
	Examples   []Value // template documents offered to the operator

	required map[string]bool
	byName   map[string]int
}

// Parse turns a raw schema document into a Schema. Parsing is total over
// well-formed JSON: a property without a type is treated as a string, and
// unrecognized formats pass through untouched. Only a document that is not
// JSON at all is rejected.
func Parse(doc []byte) (*Schema, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("schema document is not valid JSON")
	}
	root := gjson.ParseBytes(doc)

	s := &Schema{
		required: make(map[string]bool),
		byName:   make(map[string]int),
	}

	root.Get("required").ForEach(func(_, v gjson.Result) bool {
		s.required[v.String()] = true
		return true
	})

	// gjson iterates object members in document order, which preserves the
	// schema author's intended field ordering.
	root.Get("properties").ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		s.byName[name] = len(s.Properties)
		s.Properties = append(s.Properties, parseProperty(name, v, s.required[name]))
		return true
	})

	root.Get("examples").ForEach(func(_, v gjson.Result) bool {
		if m, ok := v.Value().(map[string]any); ok {
			s.Examples = append(s.Examples, Value(m))
		}
		return true
	})

	return s, nil
}

func parseProperty(name string, node gjson.Result, required bool) Property {
	p := Property{
		Name:        name,
		Type:        parseType(node.Get("type").String()),
		Title:       node.Get("title").String(),
		Description: node.Get("description").String(),
		Format:      node.Get("format").String(),
		Required:    required,
	}

	node.Get("enum").ForEach(func(_, v gjson.Result) bool {
		p.Enum = append(p.Enum, v.Value())
		return true
	})

	if min := node.Get("minimum"); min.Exists() {
		f := min.Float()
		p.Minimum = &f
	}
	if max := node.Get("maximum"); max.Exists() {
		f := max.Float()
		p.Maximum = &f
	}
	if def := node.Get("default"); def.Exists() {
		p.Default = def.Value()
	}
	if items := node.Get("items"); items.Exists() && p.Type == TypeArray {
		item := parseProperty("", items, false)
		p.Items = &item
	}

	return p
}

func parseType(s string) Type {
	switch s {
	case "integer":
		return TypeInteger
	case "number":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	default:
		// Absent or unknown types degrade to string so every property
		// remains editable as plain text.
		return TypeString
	}
}

// Property returns the named property, or nil if the schema does not
// declare it.
func (s *Schema) Property(name string) *Property {
	i, ok := s.byName[name]
	if !ok {
		return nil
	}
	return &s.Properties[i]
}

// IsRequired reports whether the schema lists name as required.
func (s *Schema) IsRequired(name string) bool {
	return s.required[name]
}

// acronyms maps lowercased name fragments to their conventional spelling
// when a property name is humanized for display.
var acronyms = map[string]string{
	"api":   "API",
	"url":   "URL",
	"uri":   "URI",
	"id":    "ID",
	"ip":    "IP",
	"dns":   "DNS",
	"ssl":   "SSL",
	"tls":   "TLS",
	"http":  "HTTP",
	"https": "HTTPS",
	"json":  "JSON",
	"smtp":  "SMTP",
	"jwt":   "JWT",
	"oidc":  "OIDC",
}

// humanize turns a camelCase or snake_case property name into a display
// label: "maxRetries" becomes "Max Retries", "apiKey" becomes "API Key".
func humanize(name string) string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		w := cur.String()
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words = append(words, a)
		} else {
			words = append(words, strings.ToUpper(w[:1])+w[1:])
		}
		cur.Reset()
	}

	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case r >= 'A' && r <= 'Z':
			if i > 0 && !isUpper(rune(name[i-1])) {
				flush()
			} else if cur.Len() > 0 && i+1 < len(name) && isLower(rune(name[i+1])) {
				// The last capital of a run like "APIKey" starts the
				// next word, leaving the run itself intact.
				flush()
			}
			cur.WriteRune(r + ('a' - 'A'))
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return strings.Join(words, " ")
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}
