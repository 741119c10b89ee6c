package device

import (
	"testing"
	"time"
)

func TestDevice_Stale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d := &Device{}
	if !d.Stale(5*time.Minute, now) {
		t.Error("device that never checked in should be stale")
	}

	recent := now.Add(-time.Minute)
	d.LastSeen = &recent
	if d.Stale(5*time.Minute, now) {
		t.Error("device seen 1m ago should not be stale with a 5m threshold")
	}

	old := now.Add(-10 * time.Minute)
	d.LastSeen = &old
	if !d.Stale(5*time.Minute, now) {
		t.Error("device seen 10m ago should be stale with a 5m threshold")
	}
}

func TestListParamsZeroValue(t *testing.T) {
	params := ListParams{}
	if params.Status != "" || params.Tag != "" || params.Search != "" {
		t.Error("expected empty filters by default")
	}
}
