package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetgrid/backend/internal/schemaform"
)

func TestManifestSchemaParses(t *testing.T) {
	s, err := schemaform.Parse(manifest.ConfigSchema)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !s.IsRequired("webhookUrl") {
		t.Error("webhookUrl should be required")
	}

	defaults := schemaform.DefaultValue(s)
	if defaults["username"] != "FleetGrid" {
		t.Errorf("expected default username FleetGrid, got %v", defaults["username"])
	}
	if defaults["timeoutSeconds"] != int64(10) {
		t.Errorf("expected default timeoutSeconds 10, got %v", defaults["timeoutSeconds"])
	}

	if len(s.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(s.Examples))
	}
}

func TestTestConfig_Success(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := New()
	result, err := p.TestConfig(context.Background(), schemaform.Value{
		"webhookUrl": server.URL,
		"channel":    "#fleet-alerts",
		"username":   "FleetGrid",
	})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
	if received["channel"] != "#fleet-alerts" {
		t.Errorf("expected channel override in payload, got %v", received["channel"])
	}
	if received["text"] == "" {
		t.Error("expected non-empty test message text")
	}
}

func TestTestConfig_SlackRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := New()
	result, err := p.TestConfig(context.Background(), schemaform.Value{"webhookUrl": server.URL})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}

	if result.Success {
		t.Error("expected failure for 404 response")
	}
}

func TestTestConfig_Unreachable(t *testing.T) {
	p := New()
	result, err := p.TestConfig(context.Background(), schemaform.Value{
		"webhookUrl": "http://127.0.0.1:1/hook",
	})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}

	if result.Success {
		t.Error("expected failure for unreachable endpoint")
	}
	if result.Message == "" {
		t.Error("expected failure message")
	}
}
