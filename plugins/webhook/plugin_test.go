package webhook

import (
	"context"
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

	if !s.IsRequired("url") {
		t.Error("url should be required")
	}

	defaults := schemaform.DefaultValue(s)
	if defaults["method"] != "POST" {
		t.Errorf("expected default method POST, got %v", defaults["method"])
	}
	if defaults["retryCount"] != int64(2) {
		t.Errorf("expected default retryCount 2, got %v", defaults["retryCount"])
	}
}

func TestTestConfig_MethodAndHeaders(t *testing.T) {
	var gotMethod, gotAuth, gotCustom string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Env")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p := New()
	result, err := p.TestConfig(context.Background(), schemaform.Value{
		"url":       server.URL,
		"method":    "put",
		"authToken": "tok-123",
		"headers":   map[string]any{"X-Env": "staging"},
	})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
	if gotMethod != "PUT" {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotCustom != "staging" {
		t.Errorf("expected custom header, got %q", gotCustom)
	}
}

func TestTestConfig_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := New()
	result, err := p.TestConfig(context.Background(), schemaform.Value{"url": server.URL})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}

	if result.Success {
		t.Error("expected failure for 502 response")
	}
}
