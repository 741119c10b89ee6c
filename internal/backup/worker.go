package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fleetgrid/backend/internal/device"
	"github.com/fleetgrid/backend/internal/notifications"
)

// DeviceSource is the slice of the device store the export worker needs.
type DeviceSource interface {
	GetByID(ctx context.Context, id string) (*device.Device, error)
	List(ctx context.Context, params device.ListParams) ([]*device.Device, int, error)
}

// snapshot is the JSON artifact written for one backup job.
type snapshot struct {
	BackupID  string           `json:"backup_id"`
	TakenAt   time.Time        `json:"taken_at"`
	DeviceID  string           `json:"device_id,omitempty"`
	Devices   []*device.Device `json:"devices"`
	FleetSize int              `json:"fleet_size"`
}

var ErrQueueFull = errors.New("backup queue is full")

type job struct {
	backupID string
	deviceID string
}

// Worker processes backup jobs asynchronously, snapshotting device
// configurations to JSON files under the export directory.
type Worker struct {
	store     *Store
	devices   DeviceSource
	producer  *notifications.EventProducer
	exportDir string
	jobs      chan job
	done      chan struct{}
}

func NewWorker(store *Store, devices DeviceSource, producer *notifications.EventProducer, exportDir string) *Worker {
	return &Worker{
		store:     store,
		devices:   devices,
		producer:  producer,
		exportDir: exportDir,
		jobs:      make(chan job, 64),
		done:      make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop drains no further jobs and waits for the current one to finish.
func (w *Worker) Stop() {
	close(w.jobs)
	<-w.done
}

// Enqueue schedules a backup job. It never blocks; a full queue is an error.
func (w *Worker) Enqueue(backupID, deviceID string) error {
	select {
	case w.jobs <- job{backupID: backupID, deviceID: deviceID}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run() {
	defer close(w.done)
	for j := range w.jobs {
		w.process(context.Background(), j)
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	if err := w.store.MarkRunning(ctx, j.backupID); err != nil {
		log.Printf("backup: failed to mark %s running: %v", j.backupID, err)
		return
	}

	filePath, size, subject, err := w.export(ctx, j)
	if err != nil {
		log.Printf("backup: job %s failed: %v", j.backupID, err)
		if markErr := w.store.MarkFailed(ctx, j.backupID, err.Error()); markErr != nil {
			log.Printf("backup: failed to mark %s failed: %v", j.backupID, markErr)
		}
		if w.producer != nil {
			w.producer.PublishBackupResult(j.backupID, subject, false, err.Error())
		}
		return
	}

	if err := w.store.MarkCompleted(ctx, j.backupID, filePath, size); err != nil {
		log.Printf("backup: failed to mark %s completed: %v", j.backupID, err)
		return
	}
	if w.producer != nil {
		w.producer.PublishBackupResult(j.backupID, subject, true, "")
	}
	log.Printf("backup: job %s completed (%d bytes)", j.backupID, size)
}

// export writes the snapshot artifact and returns its path, size, and the
// subject name used in notifications.
func (w *Worker) export(ctx context.Context, j job) (string, int64, string, error) {
	subject := "fleet"

	snap := snapshot{
		BackupID: j.backupID,
		TakenAt:  time.Now().UTC(),
		DeviceID: j.deviceID,
	}

	if j.deviceID != "" {
		d, err := w.devices.GetByID(ctx, j.deviceID)
		if err != nil {
			return "", 0, subject, fmt.Errorf("load device: %w", err)
		}
		if d == nil {
			return "", 0, subject, fmt.Errorf("device %s not found", j.deviceID)
		}
		subject = d.Name
		snap.Devices = []*device.Device{d}
	} else {
		all, _, err := w.devices.List(ctx, device.ListParams{Limit: 10000})
		if err != nil {
			return "", 0, subject, fmt.Errorf("list devices: %w", err)
		}
		snap.Devices = all
	}
	snap.FleetSize = len(snap.Devices)

	if err := os.MkdirAll(w.exportDir, 0o755); err != nil {
		return "", 0, subject, fmt.Errorf("create export dir: %w", err)
	}

	filePath := filepath.Join(w.exportDir, j.backupID+".json")
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", 0, subject, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", 0, subject, fmt.Errorf("write snapshot: %w", err)
	}

	return filePath, int64(len(data)), subject, nil
}
