// Package bridge implements remote invocation between server-side
// entities and their counterparts in the browser.
//
// Execute sends a one-way command. Call sends a command that expects a
// result and returns a Future; the result is matched to the call by a
// correlation id and handed to the session's owner Loop before the
// future completes.
package bridge

import (
	"encoding/json"

	"github.com/gubancs/leafmap/pkg/errors"
)

// Kind discriminates wire messages.
type Kind string

// Outbound kinds are sent to the remote side; inbound kinds arrive from it.
const (
	KindInvoke  Kind = "invoke"
	KindCall    Kind = "call"
	KindCreate  Kind = "create"
	KindDispose Kind = "dispose"

	KindResult Kind = "result"
	KindEvent  Kind = "event"
)

// Message is the single envelope used in both directions.
type Message struct {
	Kind      Kind              `json:"kind"`
	ID        string            `json:"id,omitempty"`
	TargetID  string            `json:"targetId,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Args      []json.RawMessage `json:"args,omitempty"`

	EventTypeName string          `json:"eventTypeName,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`

	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Encode serializes msg for the transport.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.NewEncodeError(string(msg.Kind), -1, err)
	}
	return data, nil
}

// Decode parses an inbound frame. Only result and event messages are
// accepted from the remote side.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.NewDecodeError("message", "bridge.Message", err)
	}
	switch msg.Kind {
	case KindResult:
		if msg.ID == "" {
			return nil, errors.NewValidationError("id", msg.ID, "result message without correlation id")
		}
	case KindEvent:
		if msg.EventTypeName == "" {
			return nil, errors.NewValidationError("eventTypeName", msg.EventTypeName, "event message without event type")
		}
	default:
		return nil, errors.NewValidationError("kind", msg.Kind, "unsupported inbound message kind")
	}
	return &msg, nil
}
