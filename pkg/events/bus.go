package events

import (
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/logging"
)

// Forwarder tells the remote counterpart which event names to forward.
type Forwarder interface {
	Subscribe(name string)
	Unsubscribe(name string)
	UnsubscribeAll()
}

// Bus holds the listeners of one entity. It is not safe for concurrent
// use; all calls happen on the owner goroutine of the session.
type Bus struct {
	target    Target
	listeners map[Type]map[*Listener]struct{}
	forwarder Forwarder
	logger    *zerolog.Logger
}

// NewBus creates an empty bus for target.
func NewBus(target Target, logger *zerolog.Logger) *Bus {
	return &Bus{
		target:    target,
		listeners: make(map[Type]map[*Listener]struct{}),
		logger:    logging.OrNop(logger),
	}
}

// SetForwarder installs f, or removes the forwarder when f is nil.
func (b *Bus) SetForwarder(f Forwarder) {
	b.forwarder = f
}

// SetLogger replaces the bus logger.
func (b *Bus) SetLogger(logger *zerolog.Logger) {
	b.logger = logging.OrNop(logger)
}

// On registers l for t. It reports whether l was newly added; adding the
// same handle twice is a no-op.
func (b *Bus) On(t Type, l *Listener) bool {
	if t == nil || l == nil {
		return false
	}
	set, ok := b.listeners[t]
	if !ok {
		set = make(map[*Listener]struct{})
		b.listeners[t] = set
		if b.forwarder != nil {
			b.forwarder.Subscribe(t.Name())
		}
	}
	if _, dup := set[l]; dup {
		return false
	}
	set[l] = struct{}{}
	return true
}

// Off removes a single listener for t.
func (b *Bus) Off(t Type, l *Listener) {
	set, ok := b.listeners[t]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		b.drop(t)
	}
}

// RemoveEventListener removes every listener for t.
func (b *Bus) RemoveEventListener(t Type) {
	if _, ok := b.listeners[t]; ok {
		b.drop(t)
	}
}

func (b *Bus) drop(t Type) {
	delete(b.listeners, t)
	if b.forwarder != nil {
		b.forwarder.Unsubscribe(t.Name())
	}
}

// ClearAllEventListeners removes every listener of every type.
func (b *Bus) ClearAllEventListeners() {
	clear(b.listeners)
	if b.forwarder != nil {
		b.forwarder.UnsubscribeAll()
	}
}

// Fire delivers e to the listeners registered for e.Type() when Fire was
// called and returns how many accepted it. A panicking listener is logged
// and does not stop delivery to the others.
func (b *Bus) Fire(e Event) int {
	set, ok := b.listeners[e.Type()]
	if !ok {
		return 0
	}
	snapshot := make([]*Listener, 0, len(set))
	for l := range set {
		snapshot = append(snapshot, l)
	}

	delivered := 0
	for _, l := range snapshot {
		if b.invoke(l, e) {
			delivered++
		}
	}
	return delivered
}

func (b *Bus) invoke(l *Listener, e Event) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			accepted = false
			b.logger.Error().
				Str("entity_id", b.target.ID()).
				Str("event", e.Type().Name()).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Event listener panicked")
		}
	}()
	if !l.fn(e) {
		b.logger.Debug().
			Str("entity_id", b.target.ID()).
			Str("event", e.Type().Name()).
			Str("payload", fmt.Sprintf("%T", e)).
			Msg("Listener skipped event of another payload type")
		return false
	}
	return true
}

// Has reports whether any listener is registered for t.
func (b *Bus) Has(t Type) bool {
	_, ok := b.listeners[t]
	return ok
}

// Count returns the number of listeners registered for t.
func (b *Bus) Count(t Type) int {
	return len(b.listeners[t])
}

// ActiveEventNames returns the sorted names the remote side must forward.
func (b *Bus) ActiveEventNames() []string {
	names := make([]string, 0, len(b.listeners))
	for t := range b.listeners {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}
