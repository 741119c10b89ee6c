package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetgrid/backend/internal/crypto"
	"github.com/fleetgrid/backend/internal/notifications"
	"github.com/fleetgrid/backend/internal/schemaform"
)

// Engine is the plugin registry. It parses each plugin's configuration
// schema at registration, tracks enablement, and acts as the save/test
// collaborator for configuration form controllers.
type Engine struct {
	plugins  map[string]Plugin
	enabled  map[string]bool
	schemas  map[string]*schemaform.Schema
	pool     *pgxpool.Pool
	cipher   *crypto.Cipher
	producer *notifications.EventProducer
	mu       sync.RWMutex
}

func NewEngine(pool *pgxpool.Pool, cipher *crypto.Cipher, producer *notifications.EventProducer) *Engine {
	return &Engine{
		plugins:  make(map[string]Plugin),
		enabled:  make(map[string]bool),
		schemas:  make(map[string]*schemaform.Schema),
		pool:     pool,
		cipher:   cipher,
		producer: producer,
	}
}

// Register validates the plugin's manifest, parses its configuration schema
// and adds it to the registry. The parsed schema is cached for the lifetime
// of the engine.
func (e *Engine) Register(p Plugin) error {
	m := p.Manifest()
	if m.ID == "" {
		return fmt.Errorf("plugin manifest must have an ID")
	}
	if m.Name == "" {
		return fmt.Errorf("plugin manifest must have a name")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin manifest must have a version")
	}
	if len(m.ConfigSchema) == 0 {
		return fmt.Errorf("plugin %q manifest must carry a config schema", m.ID)
	}

	schema, err := schemaform.Parse(m.ConfigSchema)
	if err != nil {
		return fmt.Errorf("plugin %q config schema: %w", m.ID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.plugins[m.ID]; exists {
		return fmt.Errorf("plugin %q is already registered", m.ID)
	}

	e.plugins[m.ID] = p
	e.schemas[m.ID] = schema
	return nil
}

func (e *Engine) Enable(ctx context.Context, pluginID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.plugins[pluginID]
	if !ok {
		return fmt.Errorf("plugin %q not found", pluginID)
	}

	if err := p.OnEnable(ctx, e.pool); err != nil {
		return fmt.Errorf("failed to enable plugin %q: %w", pluginID, err)
	}

	e.enabled[pluginID] = true

	if e.pool != nil {
		store := NewStore(e.pool)
		m := p.Manifest()
		_ = store.SavePlugin(ctx, m)
		_ = store.UpdatePluginStatus(ctx, pluginID, true)
	}

	return nil
}

func (e *Engine) Disable(ctx context.Context, pluginID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.plugins[pluginID]
	if !ok {
		return fmt.Errorf("plugin %q not found", pluginID)
	}

	if err := p.OnDisable(ctx, e.pool); err != nil {
		return fmt.Errorf("failed to disable plugin %q: %w", pluginID, err)
	}

	e.enabled[pluginID] = false

	if e.pool != nil {
		store := NewStore(e.pool)
		_ = store.UpdatePluginStatus(ctx, pluginID, false)
	}

	return nil
}

func (e *Engine) GetManifest(pluginID string) (*Manifest, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("plugin %q not found", pluginID)
	}

	m := p.Manifest()
	return &m, nil
}

// Schema returns the parsed configuration schema for a plugin.
func (e *Engine) Schema(pluginID string) (*schemaform.Schema, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.schemas[pluginID]
	if !ok {
		return nil, fmt.Errorf("plugin %q not found", pluginID)
	}
	return s, nil
}

func (e *Engine) ListEnabled(_ context.Context) []Manifest {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var manifests []Manifest
	for id, p := range e.plugins {
		if e.enabled[id] {
			manifests = append(manifests, p.Manifest())
		}
	}
	return manifests
}

func (e *Engine) ListAll() []PluginInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var infos []PluginInfo
	for id, p := range e.plugins {
		infos = append(infos, PluginInfo{
			Manifest: p.Manifest(),
			Enabled:  e.enabled[id],
		})
	}
	return infos
}

type PluginInfo struct {
	Manifest Manifest `json:"manifest"`
	Enabled  bool     `json:"enabled"`
}

// StoredConfig loads and decrypts the persisted configuration for a plugin.
// It returns nil when the plugin has never been configured.
func (e *Engine) StoredConfig(ctx context.Context, pluginID string) (schemaform.Value, error) {
	if e.pool == nil {
		return nil, nil
	}

	configEnc, err := NewStore(e.pool).GetConfig(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	if configEnc == nil {
		return nil, nil
	}

	raw, err := e.cipher.Open(configEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt plugin config: %w", err)
	}

	var value schemaform.Value
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("parse plugin config: %w", err)
	}
	return value, nil
}

// OpenForm builds a configuration form controller for a plugin and
// initializes it with the stored configuration, or synthesized defaults
// when none exists. A load failure is surfaced through the controller's
// own lifecycle rather than an error return.
func (e *Engine) OpenForm(ctx context.Context, pluginID string) *schemaform.Controller {
	ctrl := schemaform.NewController(pluginID)

	schema, err := e.Schema(pluginID)
	if err != nil {
		ctrl.FailLoad(err)
		return ctrl
	}

	stored, err := e.StoredConfig(ctx, pluginID)
	if err != nil {
		ctrl.FailLoad(err)
		return ctrl
	}

	ctrl.Initialize(schema, stored)
	return ctrl
}

// SaveConfig encrypts and persists a validated configuration value. It is
// the schemaform.Saver collaborator for form controllers.
func (e *Engine) SaveConfig(ctx context.Context, pluginID string, value schemaform.Value) error {
	e.mu.RLock()
	p, ok := e.plugins[pluginID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("plugin %q not found", pluginID)
	}

	if e.pool == nil {
		return fmt.Errorf("no database connection")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal plugin config: %w", err)
	}

	configEnc, err := e.cipher.Seal(raw)
	if err != nil {
		return fmt.Errorf("encrypt plugin config: %w", err)
	}

	if err := NewStore(e.pool).SaveConfig(ctx, pluginID, configEnc); err != nil {
		return err
	}

	if e.producer != nil {
		e.producer.PublishPluginConfigured(pluginID, p.Manifest().Name)
	}
	return nil
}

// TestConfig delegates a configuration test to the plugin. It is the
// schemaform.Tester collaborator for form controllers.
func (e *Engine) TestConfig(ctx context.Context, pluginID string, value schemaform.Value) (*schemaform.TestResult, error) {
	e.mu.RLock()
	p, ok := e.plugins[pluginID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin %q not found", pluginID)
	}

	result, err := p.TestConfig(ctx, value)
	if err != nil && e.producer != nil {
		e.producer.PublishPluginError(pluginID, p.Manifest().Name, err.Error())
	}
	return result, err
}
