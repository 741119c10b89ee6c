package drift

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Report records a detected divergence between a device's desired and
// applied configuration.
type Report struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	Fields     []string   `json:"fields"` // top-level keys that diverge
	Resolved   bool       `json:"resolved"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ListParams holds filters and pagination for listing drift reports.
type ListParams struct {
	DeviceID string
	Resolved *bool
	Limit    int
	Offset   int
}

// Store provides CRUD operations for the drift_reports table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new unresolved drift report.
func (s *Store) Create(ctx context.Context, r *Report) error {
	if r.Fields == nil {
		r.Fields = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO drift_reports (device_id, fields)
		 VALUES ($1, $2)
		 RETURNING id, detected_at`,
		r.DeviceID, r.Fields,
	).Scan(&r.ID, &r.DetectedAt)
}

// GetOpenByDevice returns the unresolved report for a device, or nil when
// the device has no open drift.
func (s *Store) GetOpenByDevice(ctx context.Context, deviceID string) (*Report, error) {
	var r Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, device_id, fields, resolved, detected_at, resolved_at
		 FROM drift_reports WHERE device_id = $1 AND resolved = false
		 ORDER BY detected_at DESC LIMIT 1`,
		deviceID,
	).Scan(&r.ID, &r.DeviceID, &r.Fields, &r.Resolved, &r.DetectedAt, &r.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateFields replaces the diverging field list on an open report.
func (s *Store) UpdateFields(ctx context.Context, id string, fields []string) error {
	if fields == nil {
		fields = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE drift_reports SET fields = $2 WHERE id = $1`,
		id, fields,
	)
	return err
}

// Resolve marks a report as resolved.
func (s *Store) Resolve(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE drift_reports SET resolved = true, resolved_at = NOW()
		 WHERE id = $1 AND resolved = false`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("drift report not found or already resolved")
	}
	return nil
}

// List returns drift reports matching the given filters with pagination.
func (s *Store) List(ctx context.Context, params ListParams) ([]Report, int, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	query := `SELECT id, device_id, fields, resolved, detected_at, resolved_at
	          FROM drift_reports WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM drift_reports WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.DeviceID != "" {
		query += ` AND device_id = $` + strconv.Itoa(argIdx)
		countQuery += ` AND device_id = $` + strconv.Itoa(argIdx)
		args = append(args, params.DeviceID)
		argIdx++
	}
	if params.Resolved != nil {
		query += ` AND resolved = $` + strconv.Itoa(argIdx)
		countQuery += ` AND resolved = $` + strconv.Itoa(argIdx)
		args = append(args, *params.Resolved)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY detected_at DESC LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, params.Limit)
	argIdx++
	query += ` OFFSET $` + strconv.Itoa(argIdx)
	args = append(args, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Fields, &r.Resolved, &r.DetectedAt, &r.ResolvedAt); err != nil {
			return nil, 0, err
		}
		if r.Fields == nil {
			r.Fields = []string{}
		}
		reports = append(reports, r)
	}

	if reports == nil {
		reports = []Report{}
	}

	return reports, total, rows.Err()
}
