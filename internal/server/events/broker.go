package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broker fans published events out to every subscriber.
type Broker struct {
	subscribers []Subscriber
	events      chan Event
	register    chan Subscriber
	unregister  chan Subscriber
	stopped     chan struct{}
	running     bool
	mu          sync.RWMutex
	now         func() time.Time
	logger      *zerolog.Logger
}

// NewBroker creates a new event broker. Subscribe may be called before
// Run starts.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		events:     make(chan Event, 256),
		register:   make(chan Subscriber),
		unregister: make(chan Subscriber),
		stopped:    make(chan struct{}),
		now:        time.Now,
		logger:     logger,
	}
}

// Run distributes events until ctx is canceled, then closes every
// subscriber.
func (b *Broker) Run(ctx context.Context) {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.running = false
			close(b.stopped)
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return

		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers = append(b.subscribers, sub)
			n := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					_ = s.Close()
					break
				}
			}
			n := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber unregistered")

		case event := <-b.events:
			b.mu.RLock()
			subs := make([]Subscriber, len(b.subscribers))
			copy(subs, b.subscribers)
			b.mu.RUnlock()

			// Subscribers are non-blocking, so delivery stays in order.
			for _, sub := range subs {
				if err := sub.Send(event); err != nil {
					b.logger.Warn().
						Err(err).
						Str("event_type", string(event.Type)).
						Str("session_id", event.SessionID).
						Msg("Failed to send event to subscriber")
				}
			}
			b.logger.Trace().
				Str("event_type", string(event.Type)).
				Str("session_id", event.SessionID).
				Int("subscribers", len(subs)).
				Msg("Event broadcasted")
		}
	}
}

// Publish queues an event. A full queue drops the event with a warning.
func (b *Broker) Publish(eventType EventType, sessionID string, data any) {
	event := Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: b.now(),
		Data:      data,
	}
	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Str("session_id", sessionID).
			Msg("Event channel full, event dropped")
	}
}

// Subscribe registers a subscriber. Once Subscribe returns, every event
// published afterwards reaches it. A stopped broker closes sub instead.
func (b *Broker) Subscribe(sub Subscriber) {
	b.mu.Lock()
	switch {
	case b.isStopped():
		b.mu.Unlock()
		_ = sub.Close()
		return
	case !b.running:
		b.subscribers = append(b.subscribers, sub)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	select {
	case b.register <- sub:
	case <-b.stopped:
		_ = sub.Close()
	}
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	if !b.running {
		for i, s := range b.subscribers {
			if s == sub {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		_ = sub.Close()
		return
	}
	b.mu.Unlock()

	select {
	case b.unregister <- sub:
	case <-b.stopped:
	}
}

func (b *Broker) isStopped() bool {
	select {
	case <-b.stopped:
		return true
	default:
		return false
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
