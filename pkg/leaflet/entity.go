package leaflet

import (
	"context"
	"weak"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/logging"
)

// Entity is any addressable object of the map: the map itself, layers,
// groups, popups and controls.
type Entity interface {
	bridge.Target
	bridge.Referable
	Kind() string
	Events() *events.Bus
	Owner() *Map
	Snapshot() Snapshot

	core() *Base
	state() any
}

// Option configures an entity at construction.
type Option func(*settings)

type settings struct {
	id       string
	logger   *zerolog.Logger
	bridge   *bridge.Bridge
	registry *events.Registry
}

// WithID sets the entity id instead of a generated one. Empty ids are
// ignored.
func WithID(id string) Option {
	return func(s *settings) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets the logger of the entity's event bus. For a Map it is
// also the logger of routing and remote commands.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithBridge sets the bridge a Map sends remote commands through.
func WithBridge(b *bridge.Bridge) Option {
	return func(s *settings) {
		s.bridge = b
	}
}

// WithRegistry sets the registry a Map resolves inbound event names with.
func WithRegistry(r *events.Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

func applyOptions(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// Base holds identity, events and tree links shared by every entity.
// Concrete types embed it as their first field.
type Base struct {
	id   string
	kind string
	bus  *events.Bus
	self Entity

	parent weak.Pointer[Group]
	anchor weak.Pointer[Base]
	host   *Map
}

func (b *Base) init(self Entity, kind string, s settings) {
	b.id = s.id
	b.kind = kind
	b.self = self
	b.bus = events.NewBus(self, s.logger)
	b.bus.SetForwarder(forwarder{b})
}

func (b *Base) core() *Base { return b }

// ID returns the immutable identifier.
func (b *Base) ID() string { return b.id }

// Kind names the remote constructor, such as "Marker".
func (b *Base) Kind() string { return b.kind }

// Events returns the entity's event bus.
func (b *Base) Events() *events.Bus { return b.bus }

// Parent returns the group containing the entity, or nil.
func (b *Base) Parent() *Group {
	return b.parent.Value()
}

// Owner returns the map the entity is attached to, or nil.
func (b *Base) Owner() *Map {
	if b.host != nil {
		return b.host
	}
	if p := b.parent.Value(); p != nil {
		return p.Owner()
	}
	if a := b.anchor.Value(); a != nil {
		return a.Owner()
	}
	return nil
}

// Attached reports whether the entity has a remote counterpart.
func (b *Base) Attached() bool {
	return b.Owner() != nil
}

// Ref describes the entity for use as a remote argument.
func (b *Base) Ref() bridge.Ref {
	snap := b.self.Snapshot()
	return bridge.Ref{ID: b.id, Kind: b.kind, Spec: &snap}
}

// Snapshot returns the serializable state of the entity.
func (b *Base) Snapshot() Snapshot {
	return Snapshot{
		ID:     b.id,
		Kind:   b.kind,
		State:  b.self.state(),
		Events: b.bus.ActiveEventNames(),
	}
}

// On registers l for t. Registering the same handle twice has no effect.
func (b *Base) On(t events.Type, l *events.Listener) *events.Listener {
	b.bus.On(t, l)
	return l
}

// Off removes one listener for t.
func (b *Base) Off(t events.Type, l *events.Listener) {
	b.bus.Off(t, l)
}

// RemoveEventListener removes every listener for t.
func (b *Base) RemoveEventListener(t events.Type) {
	b.bus.RemoveEventListener(t)
}

// ClearAllEventListeners removes every listener.
func (b *Base) ClearAllEventListeners() {
	b.bus.ClearAllEventListeners()
}

// FireEvent delivers e to the listeners of its type.
func (b *Base) FireEvent(e events.Event) int {
	return b.bus.Fire(e)
}

// OnClick registers fn for click events.
func (b *Base) OnClick(fn func(*events.MouseEvent)) *events.Listener {
	return b.On(events.Click, events.Handle(fn))
}

// OnDblClick registers fn for double clicks.
func (b *Base) OnDblClick(fn func(*events.MouseEvent)) *events.Listener {
	return b.On(events.DblClick, events.Handle(fn))
}

// OnMouseOver registers fn for pointer enter events.
func (b *Base) OnMouseOver(fn func(*events.MouseEvent)) *events.Listener {
	return b.On(events.MouseOver, events.Handle(fn))
}

// OnMouseOut registers fn for pointer leave events.
func (b *Base) OnMouseOut(fn func(*events.MouseEvent)) *events.Listener {
	return b.On(events.MouseOut, events.Handle(fn))
}

// OnContextMenu registers fn for right clicks.
func (b *Base) OnContextMenu(fn func(*events.MouseEvent)) *events.Listener {
	return b.On(events.ContextMenu, events.Handle(fn))
}

// OnAdd registers fn for the remote add event.
func (b *Base) OnAdd(fn func(*events.LayerEvent)) *events.Listener {
	return b.On(events.Add, events.Handle(fn))
}

// OnRemove registers fn for the remote remove event.
func (b *Base) OnRemove(fn func(*events.LayerEvent)) *events.Listener {
	return b.On(events.Remove, events.Handle(fn))
}

// OnPopupOpen registers fn for popups opening on this entity.
func (b *Base) OnPopupOpen(fn func(*events.PopupEvent)) *events.Listener {
	return b.On(events.PopupOpen, events.Handle(fn))
}

// OnPopupClose registers fn for popups closing on this entity.
func (b *Base) OnPopupClose(fn func(*events.PopupEvent)) *events.Listener {
	return b.On(events.PopupClose, events.Handle(fn))
}

// OnTooltipOpen registers fn for tooltips opening on this entity.
func (b *Base) OnTooltipOpen(fn func(*events.TooltipEvent)) *events.Listener {
	return b.On(events.TooltipOpen, events.Handle(fn))
}

// OnTooltipClose registers fn for tooltips closing on this entity.
func (b *Base) OnTooltipClose(fn func(*events.TooltipEvent)) *events.Listener {
	return b.On(events.TooltipClose, events.Handle(fn))
}

// execute mirrors a change to the remote counterpart when attached.
func (b *Base) execute(operation string, args ...any) {
	m := b.Owner()
	if m == nil {
		return
	}
	if err := m.bridge.Execute(b.self, operation, args...); err != nil {
		m.logger.Error().
			Err(err).
			Str("entity_id", b.id).
			Str("kind", b.kind).
			Str("operation", operation).
			Msg("Remote command not sent")
	}
}

// call invokes operation on the remote counterpart of e.
func call[T any](ctx context.Context, e Entity, operation string, args ...any) *bridge.Future[T] {
	m := e.Owner()
	if m == nil {
		return bridge.Failed[T](notAttached(e, operation))
	}
	return bridge.Call[T](ctx, m.bridge, e, operation, args...)
}

// forwarder mirrors bus subscriptions so the browser forwards only the
// events someone listens to.
type forwarder struct {
	b *Base
}

func (f forwarder) Subscribe(name string) { f.b.execute("subscribe", name) }
func (f forwarder) Unsubscribe(name string) { f.b.execute("unsubscribe", name) }
func (f forwarder) UnsubscribeAll() { f.b.execute("unsubscribeAll") }
