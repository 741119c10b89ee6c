package drift

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDivergingFields_NoDrift(t *testing.T) {
	desired := json.RawMessage(`{"interval": 60, "dns": ["1.1.1.1"]}`)
	applied := json.RawMessage(`{"dns": ["1.1.1.1"], "interval": 60}`)

	fields, err := DivergingFields(desired, applied)
	if err != nil {
		t.Fatalf("DivergingFields failed: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected no drift, got %v", fields)
	}
}

func TestDivergingFields_ChangedAndMissingKeys(t *testing.T) {
	desired := json.RawMessage(`{"interval": 60, "dns": ["1.1.1.1"], "ntp": "pool.ntp.org"}`)
	applied := json.RawMessage(`{"interval": 30, "dns": ["1.1.1.1"], "proxy": "squid:3128"}`)

	fields, err := DivergingFields(desired, applied)
	if err != nil {
		t.Fatalf("DivergingFields failed: %v", err)
	}

	want := []string{"interval", "ntp", "proxy"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("expected %v, got %v", want, fields)
	}
}

func TestDivergingFields_NestedValues(t *testing.T) {
	desired := json.RawMessage(`{"wifi": {"ssid": "fleet", "channel": 6}}`)
	applied := json.RawMessage(`{"wifi": {"ssid": "fleet", "channel": 11}}`)

	fields, err := DivergingFields(desired, applied)
	if err != nil {
		t.Fatalf("DivergingFields failed: %v", err)
	}
	if len(fields) != 1 || fields[0] != "wifi" {
		t.Errorf("expected [wifi], got %v", fields)
	}
}

func TestDivergingFields_EmptyDocuments(t *testing.T) {
	fields, err := DivergingFields(nil, nil)
	if err != nil {
		t.Fatalf("DivergingFields failed: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected no drift for empty documents, got %v", fields)
	}

	fields, err = DivergingFields(json.RawMessage(`{"a": 1}`), nil)
	if err != nil {
		t.Fatalf("DivergingFields failed: %v", err)
	}
	if len(fields) != 1 || fields[0] != "a" {
		t.Errorf("expected [a], got %v", fields)
	}
}

func TestDivergingFields_MalformedDocument(t *testing.T) {
	_, err := DivergingFields(json.RawMessage(`{not json`), nil)
	if err == nil {
		t.Error("expected error for malformed desired config")
	}
}
