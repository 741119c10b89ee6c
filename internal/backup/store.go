package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Backup is one configuration snapshot job. DeviceID is empty for
// fleet-wide exports.
type Backup struct {
	ID          string     `json:"id"`
	DeviceID    string     `json:"device_id,omitempty"`
	Status      string     `json:"status"`
	FilePath    string     `json:"file_path,omitempty"`
	SizeBytes   int64      `json:"size_bytes"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ListParams struct {
	DeviceID string
	Status   string
	Limit    int
	Offset   int
}

// Store provides CRUD operations for the backups table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, deviceID string) (*Backup, error) {
	b := &Backup{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO backups (id, device_id, status, created_at) VALUES ($1, NULLIF($2, ''), $3, $4)`,
		b.ID, b.DeviceID, b.Status, b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return b, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Backup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(device_id, ''), status, COALESCE(file_path, ''),
		        COALESCE(size_bytes, 0), COALESCE(error, ''), created_at, completed_at
		 FROM backups WHERE id = $1`, id)

	var b Backup
	err := row.Scan(&b.ID, &b.DeviceID, &b.Status, &b.FilePath,
		&b.SizeBytes, &b.Error, &b.CreatedAt, &b.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context, params ListParams) ([]*Backup, int, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}

	if params.DeviceID != "" {
		args = append(args, params.DeviceID)
		where += " AND device_id = $" + strconv.Itoa(len(args))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		where += " AND status = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM backups"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit)
	limitIdx := strconv.Itoa(len(args))
	args = append(args, params.Offset)
	offsetIdx := strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(device_id, ''), status, COALESCE(file_path, ''),
		        COALESCE(size_bytes, 0), COALESCE(error, ''), created_at, completed_at
		 FROM backups`+where+` ORDER BY created_at DESC LIMIT $`+limitIdx+` OFFSET $`+offsetIdx,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var backups []*Backup
	for rows.Next() {
		var b Backup
		if err := rows.Scan(&b.ID, &b.DeviceID, &b.Status, &b.FilePath,
			&b.SizeBytes, &b.Error, &b.CreatedAt, &b.CompletedAt); err != nil {
			return nil, 0, err
		}
		backups = append(backups, &b)
	}

	if backups == nil {
		backups = []*Backup{}
	}

	return backups, total, rows.Err()
}

func (s *Store) MarkRunning(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE backups SET status = $2 WHERE id = $1`, id, StatusRunning)
	return err
}

func (s *Store) MarkCompleted(ctx context.Context, id, filePath string, sizeBytes int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE backups SET status = $2, file_path = $3, size_bytes = $4, completed_at = NOW() WHERE id = $1`,
		id, StatusCompleted, filePath, sizeBytes)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE backups SET status = $2, error = $3, completed_at = NOW() WHERE id = $1`,
		id, StatusFailed, errMsg)
	return err
}
