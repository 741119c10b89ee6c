package plugin

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetgrid/backend/internal/schemaform"
)

// Plugin defines the interface that all integration plugins must implement.
type Plugin interface {
	ID() string
	Manifest() Manifest

	// TestConfig exercises a candidate configuration against the live
	// integration (e.g. posting a test message to a webhook). It is called
	// with a validated configuration value.
	TestConfig(ctx context.Context, cfg schemaform.Value) (*schemaform.TestResult, error)

	OnEnable(ctx context.Context, pool *pgxpool.Pool) error
	OnDisable(ctx context.Context, pool *pgxpool.Pool) error
}
