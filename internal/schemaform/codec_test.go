package schemaform

import (
	"reflect"
	"testing"
)

func TestCoerceInteger(t *testing.T) {
	p := &Property{Name: "maxRetries", Type: TypeInteger}

	tests := []struct {
		raw  any
		want any
	}{
		{"5", int64(5)},
		{" 7 ", int64(7)},
		{float64(3), int64(3)},
		{"", nil},
		{"abc", nil},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := CoerceField(p, tt.raw); got != tt.want {
			t.Errorf("CoerceField(%v): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	p := &Property{Name: "threshold", Type: TypeNumber}

	if got := CoerceField(p, "2.5"); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
	if got := CoerceField(p, "not a number"); got != nil {
		t.Errorf("expected nil for unparseable text, got %v", got)
	}
	if got := CoerceField(p, ""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestCoerceBoolean(t *testing.T) {
	p := &Property{Name: "verbose", Type: TypeBoolean}

	if got := CoerceField(p, true); got != true {
		t.Errorf("expected true, got %v", got)
	}
	if got := CoerceField(p, "true"); got != true {
		t.Errorf("expected true from text, got %v", got)
	}
	if got := CoerceField(p, "garbage"); got != false {
		t.Errorf("expected false for unparseable text, got %v", got)
	}
}

func TestCoerceString(t *testing.T) {
	p := &Property{Name: "apiKey", Type: TypeString}

	if got := CoerceField(p, "secret"); got != "secret" {
		t.Errorf("expected identity mapping, got %v", got)
	}
	if got := CoerceField(p, nil); got != "" {
		t.Errorf("expected empty string for nil, got %v", got)
	}
}

func TestAppendArrayItem(t *testing.T) {
	p := &Property{Name: "tags", Type: TypeArray, Items: &Property{Type: TypeString}}
	arr := []any{"a", "b"}

	out := AppendArrayItem(p, arr)
	if len(out) != 3 {
		t.Fatalf("expected length 3, got %d", len(out))
	}
	if out[2] != "" {
		t.Errorf("expected default string item last, got %v", out[2])
	}
	if len(arr) != 2 {
		t.Error("AppendArrayItem mutated its input")
	}
}

func TestAppendArrayItemDefaultsPerItemType(t *testing.T) {
	p := &Property{Name: "ports", Type: TypeArray, Items: &Property{Type: TypeInteger}}
	out := AppendArrayItem(p, nil)
	if out[0] != int64(0) {
		t.Errorf("expected integer zero item, got %v", out[0])
	}

	// Items are never nil, even without a declared item type.
	q := &Property{Name: "loose", Type: TypeArray}
	out = AppendArrayItem(q, nil)
	if out[0] == nil {
		t.Error("expected non-nil default item without declared item type")
	}
}

func TestRemoveArrayItem(t *testing.T) {
	arr := []any{"a", "b", "c"}

	out := RemoveArrayItem(arr, 1)
	if !reflect.DeepEqual(out, []any{"a", "c"}) {
		t.Errorf("expected [a c], got %v", out)
	}

	// Removal down to zero items is permitted.
	out = RemoveArrayItem([]any{"x"}, 0)
	if len(out) != 0 {
		t.Errorf("expected empty array, got %v", out)
	}

	// Out-of-range index leaves the array untouched.
	out = RemoveArrayItem(arr, 7)
	if !reflect.DeepEqual(out, arr) {
		t.Errorf("expected unchanged array, got %v", out)
	}
}

func TestSetArrayItem(t *testing.T) {
	p := &Property{Name: "ports", Type: TypeArray, Items: &Property{Type: TypeInteger}}
	arr := []any{int64(80), int64(443)}

	out := SetArrayItem(p, arr, 1, "8443")
	if out[1] != int64(8443) {
		t.Errorf("expected coded item 8443, got %v", out[1])
	}
	if out[0] != int64(80) {
		t.Errorf("expected untouched sibling, got %v", out[0])
	}
	if arr[1] != int64(443) {
		t.Error("SetArrayItem mutated its input")
	}
}

// Round-trip: pretty-printing an object then parsing it back reproduces a
// deeply equal value.
func TestObjectRoundTrip(t *testing.T) {
	orig := map[string]any{
		"nested": map[string]any{"a": float64(1)},
		"list":   []any{"x", "y"},
		"flag":   true,
	}

	text := FormatObject(orig)
	back, ok := ParseObject(text)
	if !ok {
		t.Fatalf("pretty-printed object failed to parse: %s", text)
	}
	if !reflect.DeepEqual(back, orig) {
		t.Errorf("round-trip mismatch: expected %v, got %v", orig, back)
	}
}

func TestParseObjectRejectsGarbage(t *testing.T) {
	if _, ok := ParseObject("invalid json"); ok {
		t.Error("expected parse failure for garbage text")
	}
	if _, ok := ParseObject(`["not", "an", "object"]`); ok {
		t.Error("expected parse failure for non-object JSON")
	}
}

func TestEnumOptions(t *testing.T) {
	optional := &Property{Name: "region", Type: TypeString, Enum: []any{"eu", "us"}}
	opts := Options(optional)
	if len(opts) != 3 {
		t.Fatalf("expected empty sentinel plus 2 options, got %d", len(opts))
	}
	if opts[0].Value != "" {
		t.Errorf("expected leading empty sentinel, got %v", opts[0].Value)
	}

	required := &Property{Name: "region", Type: TypeString, Enum: []any{"eu", "us"}, Required: true}
	opts = Options(required)
	if len(opts) != 2 {
		t.Fatalf("expected no sentinel for required field, got %d options", len(opts))
	}
	if opts[0].Value != "eu" || opts[1].Value != "us" {
		t.Errorf("expected declared order [eu us], got %v", opts)
	}
}

func TestStepHint(t *testing.T) {
	intMin := 1.0
	fracMin := 0.5

	if got := Step(&Property{Type: TypeInteger}, nil); got != 1 {
		t.Errorf("expected step 1 for integer, got %v", got)
	}
	if got := Step(&Property{Type: TypeNumber, Minimum: &intMin}, nil); got != 1 {
		t.Errorf("expected step 1 for integral minimum, got %v", got)
	}
	if got := Step(&Property{Type: TypeNumber, Minimum: &fracMin}, nil); got != 0.1 {
		t.Errorf("expected step 0.1 for fractional minimum, got %v", got)
	}
	if got := Step(&Property{Type: TypeNumber}, 2.5); got != 0.1 {
		t.Errorf("expected step 0.1 for fractional current value, got %v", got)
	}
}
