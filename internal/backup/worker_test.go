package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fleetgrid/backend/internal/device"
)

type mockDeviceSource struct {
	devices []*device.Device
	getErr  error
}

func (m *mockDeviceSource) GetByID(_ context.Context, id string) (*device.Device, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, d := range m.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDeviceSource) List(_ context.Context, _ device.ListParams) ([]*device.Device, int, error) {
	return m.devices, len(m.devices), nil
}

func testDevices() []*device.Device {
	return []*device.Device{
		{ID: "dev-1", Name: "gateway-01", Status: device.StatusOnline,
			DesiredConfig: json.RawMessage(`{"ntp":"pool.ntp.org"}`)},
		{ID: "dev-2", Name: "sensor-07", Status: device.StatusOffline},
	}
}

func TestExport_FleetSnapshot(t *testing.T) {
	dir := t.TempDir()
	w := NewWorker(nil, &mockDeviceSource{devices: testDevices()}, nil, dir)

	path, size, subject, err := w.export(context.Background(), job{backupID: "bk-1"})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if subject != "fleet" {
		t.Errorf("expected subject fleet, got %s", subject)
	}
	if size <= 0 {
		t.Errorf("expected positive size, got %d", size)
	}
	if filepath.Base(path) != "bk-1.json" {
		t.Errorf("unexpected artifact path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if snap.BackupID != "bk-1" {
		t.Errorf("expected backup_id bk-1, got %s", snap.BackupID)
	}
	if snap.FleetSize != 2 || len(snap.Devices) != 2 {
		t.Errorf("expected 2 devices in snapshot, got %d", len(snap.Devices))
	}
}

func TestExport_SingleDevice(t *testing.T) {
	w := NewWorker(nil, &mockDeviceSource{devices: testDevices()}, nil, t.TempDir())

	path, _, subject, err := w.export(context.Background(), job{backupID: "bk-2", deviceID: "dev-1"})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if subject != "gateway-01" {
		t.Errorf("expected subject gateway-01, got %s", subject)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if len(snap.Devices) != 1 || snap.Devices[0].ID != "dev-1" {
		t.Errorf("expected only dev-1 in snapshot, got %+v", snap.Devices)
	}
}

func TestExport_UnknownDevice(t *testing.T) {
	w := NewWorker(nil, &mockDeviceSource{devices: testDevices()}, nil, t.TempDir())

	_, _, _, err := w.export(context.Background(), job{backupID: "bk-3", deviceID: "dev-99"})
	if err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestExport_DeviceLoadError(t *testing.T) {
	w := NewWorker(nil, &mockDeviceSource{getErr: fmt.Errorf("connection refused")}, nil, t.TempDir())

	_, _, _, err := w.export(context.Background(), job{backupID: "bk-4", deviceID: "dev-1"})
	if err == nil {
		t.Fatal("expected error when device load fails")
	}
}

func TestEnqueue_QueueFull(t *testing.T) {
	w := NewWorker(nil, &mockDeviceSource{}, nil, t.TempDir())
	// worker not started, so the queue only drains on capacity
	for i := 0; i < cap(w.jobs); i++ {
		if err := w.Enqueue(fmt.Sprintf("bk-%d", i), ""); err != nil {
			t.Fatalf("unexpected error filling queue: %v", err)
		}
	}
	if err := w.Enqueue("bk-overflow", ""); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}
