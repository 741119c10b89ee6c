package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Point is a single metric sample reported by a device agent.
type Point struct {
	Name       string    `json:"name"` // e.g. "cpu_percent", "temperature_c"
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SeriesPoint is one aggregated bucket of a metric series.
type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Avg    float64   `json:"avg"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
}

// Store provides ingest and query operations for the device_metrics table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ingest batch-inserts metric points for one device.
func (s *Store) Ingest(ctx context.Context, deviceID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		recordedAt := p.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO device_metrics (device_id, name, value, recorded_at) VALUES ($1, $2, $3, $4)`,
			deviceID, p.Name, p.Value, recordedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert metric point: %w", err)
		}
	}
	return nil
}

// Series returns hourly-bucketed aggregates for one metric of one device
// in the given time range.
func (s *Store) Series(ctx context.Context, deviceID, name string, from, to time.Time) ([]SeriesPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date_trunc('hour', recorded_at) AS bucket,
		        AVG(value), MIN(value), MAX(value)
		 FROM device_metrics
		 WHERE device_id = $1 AND name = $2 AND recorded_at >= $3 AND recorded_at <= $4
		 GROUP BY bucket ORDER BY bucket`,
		deviceID, name, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Bucket, &p.Avg, &p.Min, &p.Max); err != nil {
			return nil, err
		}
		series = append(series, p)
	}

	if series == nil {
		series = []SeriesPoint{}
	}

	return series, rows.Err()
}

// Latest returns the most recent sample of every metric the device reports.
func (s *Store) Latest(ctx context.Context, deviceID string) ([]Point, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (name) name, value, recorded_at
		 FROM device_metrics WHERE device_id = $1
		 ORDER BY name, recorded_at DESC`,
		deviceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Name, &p.Value, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	if points == nil {
		points = []Point{}
	}

	return points, rows.Err()
}

// Prune removes samples older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM device_metrics WHERE recorded_at < $1`,
		time.Now().UTC().Add(-retention),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
