package channels

import (
	"encoding/json"
	"time"
)

// Message is the channel-facing view of a notification event.
type Message struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Category  string          `json:"category"`
	Severity  string          `json:"severity"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Channel defines the interface for delivering notification messages through
// an external channel (Slack, generic webhook, etc.).
type Channel interface {
	// Send delivers a notification message to the specified recipients.
	// Channels that post to a fixed destination ignore the recipients.
	Send(msg Message, recipients []string) error

	// Name returns the human-readable name of this channel instance.
	Name() string

	// Type returns the channel type identifier (e.g. "slack", "webhook").
	Type() string
}
