package events

// Subscriber consumes the activity stream.
type Subscriber interface {
	// Send delivers an event. It must not block the broker.
	Send(Event) error

	// Close releases the subscriber.
	Close() error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event) error

// Send calls f.
func (f SubscriberFunc) Send(e Event) error { return f(e) }

// Close does nothing.
func (f SubscriberFunc) Close() error { return nil }
