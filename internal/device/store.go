package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Device statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusRetired = "retired"
)

// Device represents a managed fleet device.
type Device struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	SerialNumber  string          `json:"serial_number"`
	Status        string          `json:"status"`
	Tags          []string        `json:"tags"`
	DesiredConfig json.RawMessage `json:"desired_config,omitempty"`
	AppliedConfig json.RawMessage `json:"applied_config,omitempty"`
	LastSeen      *time.Time      `json:"last_seen,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Stale reports whether the device has not checked in within threshold.
func (d *Device) Stale(threshold time.Duration, now time.Time) bool {
	if d.LastSeen == nil {
		return true
	}
	return now.Sub(*d.LastSeen) > threshold
}

// ListParams holds filters and pagination for listing devices.
type ListParams struct {
	Status string
	Tag    string
	Search string
	Limit  int
	Offset int
}

// Store provides CRUD operations for the devices table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const deviceColumns = `id, name, model, serial_number, status, tags, desired_config, applied_config, last_seen, created_at, updated_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.Name, &d.Model, &d.SerialNumber, &d.Status, &d.Tags,
		&d.DesiredConfig, &d.AppliedConfig, &d.LastSeen, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d, nil
}

// Create enrolls a new device. Status starts as offline until the first
// status report arrives.
func (s *Store) Create(ctx context.Context, d *Device) error {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO devices (name, model, serial_number, status, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		d.Name, d.Model, d.SerialNumber, StatusOffline, d.Tags,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns a single device.
func (s *Store) GetByID(ctx context.Context, id string) (*Device, error) {
	d, err := scanDevice(s.pool.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("device not found")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns devices matching the given filters with pagination.
func (s *Store) List(ctx context.Context, params ListParams) ([]*Device, int, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM devices WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.Status != "" {
		query += ` AND status = $` + strconv.Itoa(argIdx)
		countQuery += ` AND status = $` + strconv.Itoa(argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Tag != "" {
		query += ` AND $` + strconv.Itoa(argIdx) + ` = ANY(tags)`
		countQuery += ` AND $` + strconv.Itoa(argIdx) + ` = ANY(tags)`
		args = append(args, params.Tag)
		argIdx++
	}
	if params.Search != "" {
		query += ` AND (name ILIKE $` + strconv.Itoa(argIdx) + ` OR serial_number ILIKE $` + strconv.Itoa(argIdx) + `)`
		countQuery += ` AND (name ILIKE $` + strconv.Itoa(argIdx) + ` OR serial_number ILIKE $` + strconv.Itoa(argIdx) + `)`
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, params.Limit)
	argIdx++
	query += ` OFFSET $` + strconv.Itoa(argIdx)
	args = append(args, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		devices = append(devices, d)
	}

	if devices == nil {
		devices = []*Device{}
	}

	return devices, total, rows.Err()
}

// Update modifies a device's metadata.
func (s *Store) Update(ctx context.Context, d *Device) error {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE devices SET name = $1, model = $2, tags = $3, updated_at = NOW() WHERE id = $4`,
		d.Name, d.Model, d.Tags, d.ID,
	)
	return err
}

// UpdateStatus records a status transition and check-in time, returning the
// previous status so callers can detect transitions.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (string, error) {
	var previous string
	err := s.pool.QueryRow(ctx,
		`UPDATE devices SET status = $2, last_seen = NOW(), updated_at = NOW()
		 WHERE id = $1
		 RETURNING (SELECT status FROM devices WHERE id = $1)`,
		id, status,
	).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("device not found")
	}
	return previous, err
}

// SetDesiredConfig replaces the device's desired configuration document.
func (s *Store) SetDesiredConfig(ctx context.Context, id string, config json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE devices SET desired_config = $2, updated_at = NOW() WHERE id = $1`,
		id, config,
	)
	return err
}

// SetAppliedConfig records the configuration the device reports as applied.
func (s *Store) SetAppliedConfig(ctx context.Context, id string, config json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE devices SET applied_config = $2, updated_at = NOW() WHERE id = $1`,
		id, config,
	)
	return err
}

// Retire marks a device as retired. Retired devices keep their history but
// no longer accept status reports.
func (s *Store) Retire(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE devices SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, StatusRetired,
	)
	return err
}
