// Package events fans server-side session activity out to observers.
//
// Session hooks publish into a Broker; subscribers adapt the stream to a
// transport. The SSE tap at /events/stream is the built-in subscriber.
package events

import "time"

// EventType names a kind of session activity.
type EventType string

// Event types published by the server.
const (
	SessionCreated  EventType = "session.created"
	SessionAttached EventType = "session.attached"
	SessionDetached EventType = "session.detached"
	SessionClosed   EventType = "session.closed"

	EventDispatched EventType = "event.dispatched"
	EventDropped    EventType = "event.dropped"

	SnapshotSaved EventType = "snapshot.saved"
)

// Event is one item of the activity stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}
