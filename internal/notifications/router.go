package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/fleetgrid/backend/internal/crypto"
	"github.com/fleetgrid/backend/internal/notifications/channels"
	"github.com/fleetgrid/backend/internal/ws"
)

// Router delivers incoming notification events: it stores them for the
// dashboard feed, pushes them to connected WebSocket clients, and fans them
// out to the configured external channels.
type Router struct {
	notifStore *NotificationStore
	chanStore  *ChannelStore
	cipher     *crypto.Cipher
	hub        *ws.Hub

	mu       sync.RWMutex
	channels map[string]channels.Channel // channel ID -> Channel instance
}

// NewRouter creates a Router. Call LoadChannels() to initialize channel
// instances from the database.
func NewRouter(notifStore *NotificationStore, chanStore *ChannelStore, cipher *crypto.Cipher, hub *ws.Hub) *Router {
	return &Router{
		notifStore: notifStore,
		chanStore:  chanStore,
		cipher:     cipher,
		hub:        hub,
		channels:   make(map[string]channels.Channel),
	}
}

// RegisterChannel registers a Channel instance by ID for event delivery.
func (r *Router) RegisterChannel(id string, ch channels.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[id] = ch
}

// LoadChannels builds channel instances for all enabled channel configs,
// replacing the current set. Configs are decrypted before instantiation.
func (r *Router) LoadChannels(ctx context.Context) error {
	configs, err := r.chanStore.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled channels: %w", err)
	}

	loaded := make(map[string]channels.Channel, len(configs))
	for _, cfg := range configs {
		ch, err := r.buildChannel(cfg)
		if err != nil {
			log.Printf("notifications: skipping channel %s (%s): %v", cfg.Name, cfg.ID, err)
			continue
		}
		loaded[cfg.ID] = ch
	}

	r.mu.Lock()
	r.channels = loaded
	r.mu.Unlock()

	log.Printf("notifications: loaded %d delivery channel(s)", len(loaded))
	return nil
}

func (r *Router) buildChannel(cfg ChannelConfig) (channels.Channel, error) {
	raw, err := r.cipher.Open(cfg.ConfigEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt channel config: %w", err)
	}

	switch cfg.Type {
	case "slack":
		var sc channels.SlackConfig
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse slack config: %w", err)
		}
		return channels.NewSlackChannel(cfg.Name, sc)
	case "webhook":
		var wc channels.WebhookConfig
		if err := json.Unmarshal(raw, &wc); err != nil {
			return nil, fmt.Errorf("parse webhook config: %w", err)
		}
		return channels.NewWebhookChannel(cfg.Name, wc)
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", cfg.Type)
	}
}

// Route processes a notification event: it is pushed to WebSocket
// subscribers, dispatched to every registered channel, and stored in the
// notification feed.
func (r *Router) Route(ctx context.Context, event Event) {
	if r.hub != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			r.hub.Broadcast(ws.StreamEvent{
				Topic:   "notification",
				Type:    "notification",
				Payload: payload,
			})
		}
	}

	msg := channels.Message{
		ID:        event.ID,
		Topic:     event.Topic,
		Category:  string(event.Category),
		Severity:  string(event.Severity),
		Title:     event.Title,
		Body:      event.Body,
		Metadata:  event.Metadata,
		Timestamp: event.Timestamp,
	}

	r.mu.RLock()
	chans := make(map[string]channels.Channel, len(r.channels))
	for id, ch := range r.channels {
		chans[id] = ch
	}
	r.mu.RUnlock()

	var sentChannels []string
	for id, ch := range chans {
		if err := ch.Send(msg, nil); err != nil {
			log.Printf("notifications: failed to send to channel %s: %v", id, err)
			continue
		}
		sentChannels = append(sentChannels, ch.Type())
	}

	if r.notifStore == nil || r.notifStore.pool == nil {
		return
	}

	n := &Notification{
		Category:     string(event.Category),
		Severity:     string(event.Severity),
		Title:        event.Title,
		Body:         event.Body,
		Metadata:     event.Metadata,
		ChannelsSent: sentChannels,
	}
	if err := r.notifStore.Insert(ctx, n); err != nil {
		log.Printf("notifications: failed to store notification: %v", err)
	}
}
