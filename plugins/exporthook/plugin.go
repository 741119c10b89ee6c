package exporthook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetgrid/backend/internal/plugin"
	"github.com/fleetgrid/backend/internal/schemaform"
)

var manifest = plugin.Manifest{
	ID:          "exporthook",
	Name:        "Export Hook",
	Version:     "1.0.0",
	Description: "Ship completed configuration backups to an external archive endpoint",
	Category:    "export",
	ConfigSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "endpoint": {
      "type": "string",
      "format": "url",
      "description": "Archive ingest endpoint"
    },
    "apiKey": {
      "type": "string",
      "format": "password"
    },
    "format": {
      "type": "string",
      "enum": ["json", "csv"],
      "default": "json"
    },
    "batchSize": {
      "type": "integer",
      "minimum": 1,
      "maximum": 1000,
      "default": 100
    },
    "compress": {
      "type": "boolean",
      "default": true
    },
    "includeCategories": {
      "type": "array",
      "items": {"type": "string"}
    },
    "fieldMapping": {
      "type": "object",
      "title": "Field Mapping",
      "description": "Rename exported columns before upload"
    }
  },
  "required": ["endpoint", "apiKey"],
  "examples": [
    {
      "endpoint": "https://archive.example.com/v1/ingest",
      "apiKey": "",
      "format": "json",
      "batchSize": 250,
      "compress": true
    }
  ]
}`),
}

type ExportHookPlugin struct {
	client *http.Client
}

func New() *ExportHookPlugin {
	return &ExportHookPlugin{client: &http.Client{}}
}

func (p *ExportHookPlugin) ID() string { return manifest.ID }

func (p *ExportHookPlugin) Manifest() plugin.Manifest { return manifest }

// TestConfig checks that the archive endpoint is reachable and accepts the
// configured API key.
func (p *ExportHookPlugin) TestConfig(ctx context.Context, cfg schemaform.Value) (*schemaform.TestResult, error) {
	endpoint, _ := cfg["endpoint"].(string)
	apiKey, _ := cfg["apiKey"].(string)

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "invalid endpoint: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "endpoint unreachable: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &schemaform.TestResult{
			Success:  false,
			Message:  "endpoint rejected the API key",
			Duration: time.Since(start),
		}, nil
	case resp.StatusCode >= 400:
		return &schemaform.TestResult{
			Success:  false,
			Message:  fmt.Sprintf("endpoint returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}, nil
	}

	return &schemaform.TestResult{
		Success:  true,
		Message:  "archive endpoint reachable",
		Duration: time.Since(start),
	}, nil
}

func (p *ExportHookPlugin) OnEnable(ctx context.Context, pool *pgxpool.Pool) error  { return nil }
func (p *ExportHookPlugin) OnDisable(ctx context.Context, pool *pgxpool.Pool) error { return nil }
