package notifications

// MessageBroker moves fleet events from producers to topic subscribers.
// The in-memory implementation covers a single server process; the Kafka
// one lets several servers share one notification stream.
type MessageBroker interface {
	// Publish hands an event to the broker for asynchronous delivery to
	// every subscriber of topic.
	Publish(topic string, event Event) error

	// Subscribe registers handler for all future events on topic and
	// returns an identifier for the subscription.
	Subscribe(topic string, handler EventHandler) (string, error)

	// Close releases broker resources. No Publish or Subscribe may follow.
	Close() error
}
