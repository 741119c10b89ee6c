package plugin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetgrid/backend/internal/schemaform"
)

const mockSchema = `{
  "type": "object",
  "properties": {
    "webhookUrl": {"type": "string", "format": "url"},
    "maxRetries": {"type": "integer", "minimum": 1, "maximum": 10, "default": 3}
  },
  "required": ["webhookUrl"],
  "examples": [
    {"webhookUrl": "https://hooks.example.com/T123", "maxRetries": 5}
  ]
}`

type mockPlugin struct {
	manifest   Manifest
	testResult *schemaform.TestResult
	testErr    error
	testCalls  int
}

func (m *mockPlugin) ID() string         { return m.manifest.ID }
func (m *mockPlugin) Manifest() Manifest { return m.manifest }

func (m *mockPlugin) TestConfig(ctx context.Context, cfg schemaform.Value) (*schemaform.TestResult, error) {
	m.testCalls++
	return m.testResult, m.testErr
}

func (m *mockPlugin) OnEnable(ctx context.Context, pool *pgxpool.Pool) error  { return nil }
func (m *mockPlugin) OnDisable(ctx context.Context, pool *pgxpool.Pool) error { return nil }

func newMockPlugin(id, name, version string) *mockPlugin {
	return &mockPlugin{
		manifest: Manifest{
			ID:           id,
			Name:         name,
			Version:      version,
			ConfigSchema: json.RawMessage(mockSchema),
		},
	}
}

func TestRegisterPlugin(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	p := newMockPlugin("slack", "Slack", "1.0.0")

	if err := e.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	m, err := e.GetManifest("slack")
	if err != nil {
		t.Fatalf("GetManifest failed: %v", err)
	}
	if m.ID != "slack" {
		t.Errorf("expected ID 'slack', got '%s'", m.ID)
	}
	if m.Name != "Slack" {
		t.Errorf("expected Name 'Slack', got '%s'", m.Name)
	}

	schema, err := e.Schema("slack")
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if len(schema.Properties) != 2 {
		t.Errorf("expected 2 schema properties, got %d", len(schema.Properties))
	}
	if len(schema.Examples) != 1 {
		t.Errorf("expected 1 example, got %d", len(schema.Examples))
	}
}

func TestRegisterPlugin_Validation(t *testing.T) {
	e := NewEngine(nil, nil, nil)

	p := newMockPlugin("", "Slack", "1.0.0")
	if err := e.Register(p); err == nil {
		t.Error("expected error for missing ID")
	}

	p = newMockPlugin("slack", "Slack", "1.0.0")
	p.manifest.ConfigSchema = nil
	if err := e.Register(p); err == nil {
		t.Error("expected error for missing config schema")
	}

	p = newMockPlugin("slack", "Slack", "1.0.0")
	p.manifest.ConfigSchema = json.RawMessage(`{not json`)
	if err := e.Register(p); err == nil {
		t.Error("expected error for malformed config schema")
	}
}

func TestEnableDisable(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	p := newMockPlugin("webhook", "Webhook", "1.0.0")
	ctx := context.Background()

	if err := e.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Initially not enabled
	enabled := e.ListEnabled(ctx)
	if len(enabled) != 0 {
		t.Fatalf("expected 0 enabled plugins, got %d", len(enabled))
	}

	// Enable
	if err := e.Enable(ctx, "webhook"); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	enabled = e.ListEnabled(ctx)
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled plugin, got %d", len(enabled))
	}
	if enabled[0].ID != "webhook" {
		t.Errorf("expected enabled plugin 'webhook', got '%s'", enabled[0].ID)
	}

	// Disable
	if err := e.Disable(ctx, "webhook"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	enabled = e.ListEnabled(ctx)
	if len(enabled) != 0 {
		t.Fatalf("expected 0 enabled plugins after disable, got %d", len(enabled))
	}
}

func TestDuplicateRegister(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	p := newMockPlugin("slack", "Slack", "1.0.0")

	if err := e.Register(p); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	err := e.Register(p)
	if err == nil {
		t.Fatal("expected error on duplicate register, got nil")
	}
}

func TestOpenForm_DefaultsWithoutStoredConfig(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	p := newMockPlugin("slack", "Slack", "1.0.0")
	if err := e.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctrl := e.OpenForm(context.Background(), "slack")
	if ctrl.State() != schemaform.StateReady {
		t.Fatalf("expected ready state, got %v", ctrl.State())
	}

	value := ctrl.Value()
	if value["maxRetries"] != int64(3) {
		t.Errorf("expected default maxRetries 3, got %v", value["maxRetries"])
	}
	if value["webhookUrl"] != "" {
		t.Errorf("expected empty webhookUrl default, got %v", value["webhookUrl"])
	}

	// webhookUrl is required and empty, so the form starts invalid.
	if ctrl.IsValid() {
		t.Error("expected form to start invalid with required field empty")
	}
}

func TestOpenForm_UnknownPlugin(t *testing.T) {
	e := NewEngine(nil, nil, nil)

	ctrl := e.OpenForm(context.Background(), "nope")
	if ctrl.State() != schemaform.StateLoadError {
		t.Fatalf("expected load error state, got %v", ctrl.State())
	}
	if ctrl.LoadError() == nil {
		t.Error("expected non-nil load error")
	}
}

func TestEngine_TestConfigDelegates(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	p := newMockPlugin("slack", "Slack", "1.0.0")
	p.testResult = &schemaform.TestResult{Success: true, Message: "ok"}
	if err := e.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := e.TestConfig(context.Background(), "slack", schemaform.Value{"webhookUrl": "https://x"})
	if err != nil {
		t.Fatalf("TestConfig failed: %v", err)
	}
	if !result.Success {
		t.Error("expected successful test result")
	}
	if p.testCalls != 1 {
		t.Errorf("expected 1 test call, got %d", p.testCalls)
	}

	if _, err := e.TestConfig(context.Background(), "nope", nil); err == nil {
		t.Error("expected error for unknown plugin")
	}
}
