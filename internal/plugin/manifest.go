package plugin

import "encoding/json"

// Manifest describes an integration plugin: identity, versioning and the
// configuration schema document that drives its settings form.
type Manifest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Category     string          `json:"category"` // e.g. "notification", "export"
	ConfigSchema json.RawMessage `json:"config_schema"`
}
