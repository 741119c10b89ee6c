package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/fleetgrid/backend/internal/device"
	"github.com/fleetgrid/backend/internal/notifications"
)

// Detector compares desired and applied configuration documents and keeps
// the drift_reports table in sync. It implements device.DriftChecker.
type Detector struct {
	store    *Store
	producer *notifications.EventProducer
}

func NewDetector(store *Store, producer *notifications.EventProducer) *Detector {
	return &Detector{store: store, producer: producer}
}

// CheckDevice runs drift detection for one device after an applied-config
// report. A new divergence opens a report; a report whose divergence is
// gone gets resolved. Both transitions publish notification events.
func (d *Detector) CheckDevice(ctx context.Context, dev *device.Device) error {
	fields, err := DivergingFields(dev.DesiredConfig, dev.AppliedConfig)
	if err != nil {
		return fmt.Errorf("compare configs for %s: %w", dev.ID, err)
	}

	open, err := d.store.GetOpenByDevice(ctx, dev.ID)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		if open == nil {
			return nil
		}
		if err := d.store.Resolve(ctx, open.ID); err != nil {
			return err
		}
		if d.producer != nil {
			d.producer.PublishDriftEvent(open.ID, dev.Name, true)
		}
		return nil
	}

	if open != nil {
		// Already drifting: keep the field list current, no new event.
		return d.store.UpdateFields(ctx, open.ID, fields)
	}

	report := &Report{DeviceID: dev.ID, Fields: fields}
	if err := d.store.Create(ctx, report); err != nil {
		return err
	}
	if d.producer != nil {
		d.producer.PublishDriftEvent(report.ID, dev.Name, false)
	}
	return nil
}

// DivergingFields returns the sorted top-level keys on which the desired
// and applied configuration documents disagree. A key missing on either
// side counts as divergence. Two empty documents never diverge.
func DivergingFields(desired, applied json.RawMessage) ([]string, error) {
	desiredMap, err := parseConfig(desired)
	if err != nil {
		return nil, fmt.Errorf("desired config: %w", err)
	}
	appliedMap, err := parseConfig(applied)
	if err != nil {
		return nil, fmt.Errorf("applied config: %w", err)
	}

	seen := make(map[string]bool)
	var fields []string

	for key, want := range desiredMap {
		seen[key] = true
		got, ok := appliedMap[key]
		if !ok || !reflect.DeepEqual(want, got) {
			fields = append(fields, key)
		}
	}
	for key := range appliedMap {
		if !seen[key] {
			fields = append(fields, key)
		}
	}

	sort.Strings(fields)
	return fields, nil
}

func parseConfig(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
