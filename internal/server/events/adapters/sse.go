// Package adapters connects the event broker to transports.
package adapters

import (
	"strconv"

	"github.com/gubancs/leafmap/internal/server/events"
	"github.com/gubancs/leafmap/internal/server/sse"
)

// SSESubscriber feeds broker events to the SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber creates a new SSE subscriber.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send broadcasts event. The frame id is the event time in nanoseconds.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event:   string(event.Type),
		ID:      strconv.FormatInt(event.Timestamp.UnixNano(), 10),
		Session: event.SessionID,
		Data:    event,
	})
	return nil
}

// Close is a no-op; the broadcaster owns its lifecycle.
func (s *SSESubscriber) Close() error {
	return nil
}
