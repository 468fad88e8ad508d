package leafmap

import (
	"sync"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/events"
)

// Hook function types for session lifecycle and dispatch
type (
	// AttachedHook is called after a transport is attached and the map was sent
	AttachedHook func(sessionID string)

	// DetachedHook is called after the transport is detached
	DetachedHook func(sessionID string)

	// EventDispatchedHook is called on the owner loop after an inbound event
	// reached its target's listeners
	EventDispatchedHook func(sessionID string, e events.Event)

	// EventDroppedHook is called on the owner loop when an inbound event
	// could not be resolved or decoded
	EventDroppedHook func(sessionID string, msg *bridge.Message, err error)
)

// hooks manages session callbacks
type hooks struct {
	mu                sync.RWMutex
	onAttached        []AttachedHook
	onDetached        []DetachedHook
	onEventDispatched []EventDispatchedHook
	onEventDropped    []EventDroppedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnAttached registers a callback for attach
func (h *hooks) OnAttached(fn AttachedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAttached = append(h.onAttached, fn)
}

// OnDetached registers a callback for detach
func (h *hooks) OnDetached(fn DetachedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDetached = append(h.onDetached, fn)
}

// OnEventDispatched registers a callback for dispatched events
func (h *hooks) OnEventDispatched(fn EventDispatchedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEventDispatched = append(h.onEventDispatched, fn)
}

// OnEventDropped registers a callback for dropped events
func (h *hooks) OnEventDropped(fn EventDroppedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEventDropped = append(h.onEventDropped, fn)
}

func (h *hooks) triggerAttached(id string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onAttached {
		fn(id)
	}
}

func (h *hooks) triggerDetached(id string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onDetached {
		fn(id)
	}
}

func (h *hooks) triggerEventDispatched(id string, e events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onEventDispatched {
		fn(id, e)
	}
}

func (h *hooks) triggerEventDropped(id string, msg *bridge.Message, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onEventDropped {
		fn(id, msg, err)
	}
}
