package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PluginRecord is the persisted registration row for a plugin.
type PluginRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Manifest    Manifest  `json:"manifest"`
	Enabled     bool      `json:"enabled"`
	InstalledAt time.Time `json:"installed_at"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SavePlugin(ctx context.Context, m Manifest) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO plugins (id, name, version, manifest, enabled)
		 VALUES ($1, $2, $3, $4, false)
		 ON CONFLICT (id) DO UPDATE SET name = $2, version = $3, manifest = $4`,
		m.ID, m.Name, m.Version, manifestJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save plugin: %w", err)
	}
	return nil
}

func (s *Store) GetPlugin(ctx context.Context, id string) (*PluginRecord, error) {
	var r PluginRecord
	var manifestJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, version, manifest, enabled, installed_at
		 FROM plugins WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Name, &r.Version, &manifestJSON, &r.Enabled, &r.InstalledAt)
	if err != nil {
		return nil, fmt.Errorf("plugin not found: %w", err)
	}
	if err := json.Unmarshal(manifestJSON, &r.Manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &r, nil
}

func (s *Store) ListPlugins(ctx context.Context) ([]*PluginRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, version, manifest, enabled, installed_at
		 FROM plugins ORDER BY installed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	defer rows.Close()

	var plugins []*PluginRecord
	for rows.Next() {
		var r PluginRecord
		var manifestJSON []byte
		if err := rows.Scan(&r.ID, &r.Name, &r.Version, &manifestJSON, &r.Enabled, &r.InstalledAt); err != nil {
			return nil, fmt.Errorf("failed to scan plugin: %w", err)
		}
		if err := json.Unmarshal(manifestJSON, &r.Manifest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
		}
		plugins = append(plugins, &r)
	}
	return plugins, rows.Err()
}

func (s *Store) UpdatePluginStatus(ctx context.Context, id string, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE plugins SET enabled = $2 WHERE id = $1`,
		id, enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update plugin status: %w", err)
	}
	return nil
}

// SaveConfig upserts the encrypted configuration blob for a plugin.
func (s *Store) SaveConfig(ctx context.Context, pluginID string, configEnc []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO plugin_configs (plugin_id, config_enc)
		 VALUES ($1, $2)
		 ON CONFLICT (plugin_id)
		 DO UPDATE SET config_enc = $2, updated_at = NOW()`,
		pluginID, configEnc,
	)
	if err != nil {
		return fmt.Errorf("failed to save plugin config: %w", err)
	}
	return nil
}

// GetConfig returns the encrypted configuration blob for a plugin, or nil
// when the plugin has never been configured.
func (s *Store) GetConfig(ctx context.Context, pluginID string) ([]byte, error) {
	var configEnc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config_enc FROM plugin_configs WHERE plugin_id = $1`,
		pluginID,
	).Scan(&configEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin config: %w", err)
	}
	return configEnc, nil
}

// DeleteConfig removes the stored configuration for a plugin.
func (s *Store) DeleteConfig(ctx context.Context, pluginID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM plugin_configs WHERE plugin_id = $1`, pluginID,
	)
	return err
}
