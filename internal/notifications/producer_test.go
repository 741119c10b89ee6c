package notifications

import (
	"fmt"
	"sync"
	"testing"
)

// mockBroker records published events for assertions.
type mockBroker struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

type publishedEvent struct {
	topic string
	event Event
}

func (m *mockBroker) Publish(topic string, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedEvent{topic: topic, event: event})
	return nil
}

func (m *mockBroker) Subscribe(topic string, handler EventHandler) (string, error) {
	return "mock-sub", nil
}

func (m *mockBroker) Close() error { return nil }

func (m *mockBroker) last(t *testing.T) publishedEvent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.published) == 0 {
		t.Fatal("no events published")
	}
	return m.published[len(m.published)-1]
}

func TestEventProducer_PublishDeviceStatus(t *testing.T) {
	broker := &mockBroker{}
	p := NewEventProducer(broker)

	p.PublishDeviceStatus("dev-1", "gateway-eu-01", "online")
	got := broker.last(t)
	if got.topic != TopicDeviceOnline {
		t.Errorf("expected topic %s, got %s", TopicDeviceOnline, got.topic)
	}
	if got.event.Severity != SeverityInfo {
		t.Errorf("expected severity info, got %s", got.event.Severity)
	}

	p.PublishDeviceStatus("dev-1", "gateway-eu-01", "offline")
	got = broker.last(t)
	if got.topic != TopicDeviceOffline {
		t.Errorf("expected topic %s, got %s", TopicDeviceOffline, got.topic)
	}
	if got.event.Severity != SeverityWarning {
		t.Errorf("expected severity warning, got %s", got.event.Severity)
	}
	if got.event.Body != "gateway-eu-01 is offline" {
		t.Errorf("unexpected body: %q", got.event.Body)
	}
}

func TestEventProducer_PublishBackupResult(t *testing.T) {
	broker := &mockBroker{}
	p := NewEventProducer(broker)

	p.PublishBackupResult("bkp-1", "gateway-eu-01", true, "")
	got := broker.last(t)
	if got.topic != TopicBackupCompleted {
		t.Errorf("expected topic %s, got %s", TopicBackupCompleted, got.topic)
	}

	p.PublishBackupResult("bkp-2", "gateway-eu-01", false, "device unreachable")
	got = broker.last(t)
	if got.topic != TopicBackupFailed {
		t.Errorf("expected topic %s, got %s", TopicBackupFailed, got.topic)
	}
	if got.event.Severity != SeverityCritical {
		t.Errorf("expected severity critical, got %s", got.event.Severity)
	}
	if got.event.Body != "Configuration backup for gateway-eu-01 failed: device unreachable" {
		t.Errorf("unexpected body: %q", got.event.Body)
	}
}

func TestEventProducer_PublishDriftEvent(t *testing.T) {
	broker := &mockBroker{}
	p := NewEventProducer(broker)

	p.PublishDriftEvent("rep-1", "gateway-eu-01", false)
	got := broker.last(t)
	if got.topic != TopicDriftDetected {
		t.Errorf("expected topic %s, got %s", TopicDriftDetected, got.topic)
	}
	if got.event.Category != CategoryDrift {
		t.Errorf("expected category drift, got %s", got.event.Category)
	}

	p.PublishDriftEvent("rep-1", "gateway-eu-01", true)
	got = broker.last(t)
	if got.topic != TopicDriftResolved {
		t.Errorf("expected topic %s, got %s", TopicDriftResolved, got.topic)
	}
	if got.event.Severity != SeverityInfo {
		t.Errorf("expected severity info, got %s", got.event.Severity)
	}
}

func TestEventProducer_PublishPluginEvents(t *testing.T) {
	broker := &mockBroker{}
	p := NewEventProducer(broker)

	p.PublishPluginConfigured("slack", "Slack")
	got := broker.last(t)
	if got.topic != TopicPluginConfigured {
		t.Errorf("expected topic %s, got %s", TopicPluginConfigured, got.topic)
	}

	p.PublishPluginError("slack", "Slack", "webhook returned status 500")
	got = broker.last(t)
	if got.topic != TopicPluginError {
		t.Errorf("expected topic %s, got %s", TopicPluginError, got.topic)
	}
	if got.event.Body != "Slack: webhook returned status 500" {
		t.Errorf("unexpected body: %q", got.event.Body)
	}
}

func TestEventProducer_BrokerErrorDoesNotPanic(t *testing.T) {
	broker := &mockBroker{err: fmt.Errorf("broker down")}
	p := NewEventProducer(broker)

	// Publish failures are logged, not propagated.
	p.PublishDeviceStatus("dev-1", "gateway-eu-01", "offline")
	p.PublishBackupResult("bkp-1", "gateway-eu-01", false, "x")
}
