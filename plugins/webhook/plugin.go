package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetgrid/backend/internal/plugin"
	"github.com/fleetgrid/backend/internal/schemaform"
)

var manifest = plugin.Manifest{
	ID:          "webhook",
	Name:        "Generic Webhook",
	Version:     "1.0.0",
	Description: "Forward fleet events to any HTTP endpoint",
	Category:    "notification",
	ConfigSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "format": "url",
      "title": "Endpoint URL"
    },
    "method": {
      "type": "string",
      "enum": ["POST", "PUT", "PATCH"],
      "default": "POST"
    },
    "authToken": {
      "type": "string",
      "format": "password",
      "description": "Sent as a bearer token when set"
    },
    "headers": {
      "type": "object",
      "description": "Additional headers added to every request"
    },
    "retryCount": {
      "type": "integer",
      "minimum": 0,
      "maximum": 5,
      "default": 2
    },
    "events": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Topics to forward; empty forwards everything"
    }
  },
  "required": ["url"],
  "examples": [
    {
      "url": "https://ops.example.com/hooks/fleetgrid",
      "method": "POST",
      "retryCount": 2,
      "events": ["device.offline", "backup.failed"]
    }
  ]
}`),
}

type WebhookPlugin struct {
	client *http.Client
}

func New() *WebhookPlugin {
	return &WebhookPlugin{client: &http.Client{}}
}

func (p *WebhookPlugin) ID() string { return manifest.ID }

func (p *WebhookPlugin) Manifest() plugin.Manifest { return manifest }

// TestConfig sends a probe payload to the configured endpoint using the
// configured method and headers.
func (p *WebhookPlugin) TestConfig(ctx context.Context, cfg schemaform.Value) (*schemaform.TestResult, error) {
	url, _ := cfg["url"].(string)

	method, _ := cfg["method"].(string)
	if method == "" {
		method = http.MethodPost
	}
	method = strings.ToUpper(method)

	body, err := json.Marshal(map[string]any{
		"event": "test",
		"body":  "FleetGrid webhook connectivity test",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal test payload: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "invalid endpoint: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if token, _ := cfg["authToken"].(string); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if headers, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "request failed: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &schemaform.TestResult{
			Success:  false,
			Message:  fmt.Sprintf("endpoint returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}, nil
	}

	return &schemaform.TestResult{
		Success:  true,
		Message:  fmt.Sprintf("endpoint accepted %s probe", method),
		Duration: time.Since(start),
	}, nil
}

func (p *WebhookPlugin) OnEnable(ctx context.Context, pool *pgxpool.Pool) error  { return nil }
func (p *WebhookPlugin) OnDisable(ctx context.Context, pool *pgxpool.Pool) error { return nil }
