package notifications

import (
	"encoding/json"
	"log"
)

// EventProducer translates system events (device status changes, backup
// results, drift reports, plugin lifecycle) into notification events and
// publishes them to the broker.
type EventProducer struct {
	broker MessageBroker
}

// NewEventProducer creates a new EventProducer that publishes to the given broker.
func NewEventProducer(broker MessageBroker) *EventProducer {
	return &EventProducer{broker: broker}
}

// PublishDeviceStatus publishes a device online/offline transition.
func (p *EventProducer) PublishDeviceStatus(deviceID, deviceName, status string) {
	topic := TopicDeviceOnline
	severity := SeverityInfo
	title := "Device online"

	if status != "online" {
		topic = TopicDeviceOffline
		severity = SeverityWarning
		title = "Device offline"
	}

	meta, _ := json.Marshal(map[string]string{
		"device_id":   deviceID,
		"device_name": deviceName,
		"status":      status,
	})

	p.publish(topic, CategoryDevice, severity, title, deviceName+" is "+status, meta)
}

// PublishDeviceEnrolled publishes a device enrollment event.
func (p *EventProducer) PublishDeviceEnrolled(deviceID, deviceName string) {
	meta, _ := json.Marshal(map[string]string{"device_id": deviceID})
	p.publish(TopicDeviceEnrolled, CategoryDevice, SeverityInfo,
		"Device enrolled", deviceName+" joined the fleet", meta)
}

// PublishDeviceRetired publishes a device retirement event.
func (p *EventProducer) PublishDeviceRetired(deviceID, deviceName string) {
	meta, _ := json.Marshal(map[string]string{"device_id": deviceID})
	p.publish(TopicDeviceRetired, CategoryDevice, SeverityInfo,
		"Device retired", deviceName+" was removed from the fleet", meta)
}

// PublishBackupResult publishes the outcome of a configuration backup run.
func (p *EventProducer) PublishBackupResult(backupID, deviceName string, ok bool, detail string) {
	meta, _ := json.Marshal(map[string]string{"backup_id": backupID})

	if ok {
		p.publish(TopicBackupCompleted, CategoryBackup, SeverityInfo,
			"Backup completed", "Configuration backup for "+deviceName+" completed", meta)
		return
	}
	body := "Configuration backup for " + deviceName + " failed"
	if detail != "" {
		body += ": " + detail
	}
	p.publish(TopicBackupFailed, CategoryBackup, SeverityCritical, "Backup failed", body, meta)
}

// PublishDriftEvent publishes a configuration drift detection or resolution.
func (p *EventProducer) PublishDriftEvent(reportID, deviceName string, resolved bool) {
	meta, _ := json.Marshal(map[string]string{"report_id": reportID})

	if resolved {
		p.publish(TopicDriftResolved, CategoryDrift, SeverityInfo,
			"Drift resolved", "Configuration drift on "+deviceName+" was resolved", meta)
		return
	}
	p.publish(TopicDriftDetected, CategoryDrift, SeverityWarning,
		"Drift detected", deviceName+" deviates from its desired configuration", meta)
}

// PublishPluginConfigured publishes a successful plugin configuration save.
func (p *EventProducer) PublishPluginConfigured(pluginID, pluginName string) {
	meta, _ := json.Marshal(map[string]string{"plugin_id": pluginID})
	p.publish(TopicPluginConfigured, CategoryPlugin, SeverityInfo,
		"Plugin configured", pluginName+" configuration was updated", meta)
}

// PublishPluginError publishes a plugin failure event.
func (p *EventProducer) PublishPluginError(pluginID, pluginName, detail string) {
	meta, _ := json.Marshal(map[string]string{"plugin_id": pluginID})
	p.publish(TopicPluginError, CategoryPlugin, SeverityCritical,
		"Plugin error", pluginName+": "+detail, meta)
}

func (p *EventProducer) publish(topic string, category Category, severity Severity, title, body string, meta json.RawMessage) {
	event := NewEvent(topic, category, severity, title, body, meta)
	if err := p.broker.Publish(topic, event); err != nil {
		log.Printf("notifications: failed to publish %s event: %v", topic, err)
	}
}
