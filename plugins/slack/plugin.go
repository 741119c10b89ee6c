package slack

import (
	"bytes"
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
	ID:          "slack",
	Name:        "Slack",
	Version:     "1.0.0",
	Description: "Post fleet alerts to a Slack channel via an incoming webhook",
	Category:    "notification",
	ConfigSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "webhookUrl": {
      "type": "string",
      "format": "url",
      "description": "Slack incoming webhook URL"
    },
    "channel": {
      "type": "string",
      "description": "Override the webhook's default channel"
    },
    "username": {
      "type": "string",
      "default": "FleetGrid"
    },
    "linkNames": {
      "type": "boolean",
      "description": "Resolve @mentions in message text"
    },
    "notifySeverities": {
      "type": "array",
      "items": {"type": "string", "enum": ["info", "warning", "critical"]},
      "default": ["warning", "critical"]
    },
    "timeoutSeconds": {
      "type": "integer",
      "minimum": 1,
      "maximum": 60,
      "default": 10
    },
    "blockOverrides": {
      "type": "object",
      "title": "Block Overrides",
      "description": "Raw Block Kit overrides merged into outgoing messages"
    }
  },
  "required": ["webhookUrl"],
  "examples": [
    {
      "webhookUrl": "https://hooks.slack.com/services/T00000000/B00000000/XXXX",
      "channel": "#fleet-alerts",
      "username": "FleetGrid",
      "notifySeverities": ["warning", "critical"],
      "timeoutSeconds": 10
    }
  ]
}`),
}

type SlackPlugin struct {
	client *http.Client
}

func New() *SlackPlugin {
	return &SlackPlugin{client: &http.Client{}}
}

func (p *SlackPlugin) ID() string { return manifest.ID }

func (p *SlackPlugin) Manifest() plugin.Manifest { return manifest }

// TestConfig posts a test message to the configured webhook and reports
// whether Slack accepted it.
func (p *SlackPlugin) TestConfig(ctx context.Context, cfg schemaform.Value) (*schemaform.TestResult, error) {
	webhookURL, _ := cfg["webhookUrl"].(string)

	payload := map[string]any{
		"text": "FleetGrid test message: your Slack integration is working.",
	}
	if channel, _ := cfg["channel"].(string); channel != "" {
		payload["channel"] = channel
	}
	if username, _ := cfg["username"].(string); username != "" {
		payload["username"] = username
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal test payload: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "invalid webhook URL: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &schemaform.TestResult{
			Success:  false,
			Message:  "webhook request failed: " + err.Error(),
			Duration: time.Since(start),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &schemaform.TestResult{
			Success:  false,
			Message:  fmt.Sprintf("Slack returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}, nil
	}

	return &schemaform.TestResult{
		Success:  true,
		Message:  "test message delivered",
		Duration: time.Since(start),
	}, nil
}

func (p *SlackPlugin) OnEnable(ctx context.Context, pool *pgxpool.Pool) error  { return nil }
func (p *SlackPlugin) OnDisable(ctx context.Context, pool *pgxpool.Pool) error { return nil }
