package leaflet

import (
	"context"
	"slices"
	"weak"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
)

// Map is the root entity. It owns an implicit root group for the layers
// added to it directly, and the controls placed on it.
type Map struct {
	Base
	options  MapOptions
	root     *Group
	controls []Control

	bridge   *bridge.Bridge
	registry *events.Registry
	logger   *zerolog.Logger
}

// NewMap creates a map. Without WithBridge the map has a detached bridge
// and remote commands are dropped; without WithRegistry the default
// event registry is used.
func NewMap(options MapOptions, opts ...Option) *Map {
	s := applyOptions(opts)
	m := &Map{
		options:  options,
		bridge:   s.bridge,
		registry: s.registry,
		logger:   s.logger,
	}
	if m.bridge == nil {
		m.bridge = bridge.New(bridge.WithLogger(s.logger))
	}
	if m.registry == nil {
		m.registry = events.Default()
	}
	m.init(m, "Map", s)
	m.host = m
	m.root = newRootGroup(m, s)
	return m
}

func (m *Map) container() *Group { return m.root }

func (m *Map) state() any { return m.options }

// Bridge returns the bridge remote commands go through.
func (m *Map) Bridge() *bridge.Bridge { return m.bridge }

// Registry returns the registry inbound event names are resolved with.
func (m *Map) Registry() *events.Registry { return m.registry }

// Logger returns the map logger.
func (m *Map) Logger() *zerolog.Logger { return m.logger }

// Options returns the map options with the current local view.
func (m *Map) Options() MapOptions { return m.options }

// Center returns the last center set from this side.
func (m *Map) Center() geo.LatLng { return m.options.Center }

// Zoom returns the last zoom set from this side.
func (m *Map) Zoom() float64 { return m.options.Zoom }

// Snapshot returns the whole tree: map state, layers and controls.
func (m *Map) Snapshot() Snapshot {
	s := m.Base.Snapshot()
	for _, c := range m.root.children {
		s.Children = append(s.Children, c.Snapshot())
	}
	for _, c := range m.controls {
		s.Controls = append(s.Controls, c.Snapshot())
	}
	return s
}

// AddLayer attaches l to the map and creates it remotely.
func (m *Map) AddLayer(l Layer) error {
	return l.AddTo(m)
}

// RemoveLayer detaches l from the map.
func (m *Map) RemoveLayer(l Layer) {
	m.root.RemoveLayer(l)
}

// HasLayer reports whether l is attached directly to the map.
func (m *Map) HasLayer(l Layer) bool {
	return m.root.HasLayer(l)
}

// Layers returns the layers attached directly to the map.
func (m *Map) Layers() []Layer {
	return m.root.Layers()
}

// EachLayer calls fn for each layer attached directly to the map.
func (m *Map) EachLayer(fn func(Layer)) {
	m.root.EachLayer(fn)
}

// FindLayer returns the map itself or the layer with id anywhere in the
// tree.
func (m *Map) FindLayer(id string) (Entity, bool) {
	if id == m.id {
		return m, true
	}
	return m.root.FindLayer(id)
}

// Lookup is FindLayer extended to controls.
func (m *Map) Lookup(id string) (Entity, bool) {
	if e, ok := m.FindLayer(id); ok {
		return e, true
	}
	for _, c := range m.controls {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// AddControl places c on the map. A control on another map moves here.
func (m *Map) AddControl(c Control) {
	if owner := c.Owner(); owner == m {
		return
	} else if owner != nil {
		owner.RemoveControl(c)
	}
	c.core().anchor = weak.Make(&m.Base)
	m.controls = append(m.controls, c)
	m.execute("addControl", c)
}

// RemoveControl takes c off the map.
func (m *Map) RemoveControl(c Control) {
	idx := slices.IndexFunc(m.controls, func(x Control) bool { return x.ID() == c.ID() })
	if idx < 0 {
		m.logger.Warn().Str("control_id", c.ID()).Msg("Control not on map, nothing removed")
		return
	}
	m.controls = slices.Delete(m.controls, idx, idx+1)
	c.core().anchor = weak.Pointer[Base]{}
	m.execute("removeControl", c.ID())
}

// Controls returns the controls on the map.
func (m *Map) Controls() []Control {
	return slices.Clone(m.controls)
}

// SetView centers the map at center with zoom.
func (m *Map) SetView(center geo.LatLng, zoom float64, opts ViewOptions) {
	m.options.Center, m.options.Zoom = center, zoom
	m.execute("setView", center, zoom, opts)
}

// FlyTo animates to center and zoom.
func (m *Map) FlyTo(center geo.LatLng, zoom float64, opts ViewOptions) {
	m.options.Center, m.options.Zoom = center, zoom
	m.execute("flyTo", center, zoom, opts)
}

// SetZoom changes the zoom level.
func (m *Map) SetZoom(zoom float64) {
	m.options.Zoom = zoom
	m.execute("setZoom", zoom)
}

// ZoomIn zooms in by delta levels.
func (m *Map) ZoomIn(delta float64) {
	m.options.Zoom += delta
	m.execute("zoomIn", delta)
}

// ZoomOut zooms out by delta levels.
func (m *Map) ZoomOut(delta float64) {
	m.options.Zoom -= delta
	m.execute("zoomOut", delta)
}

// PanTo moves the center without changing zoom.
func (m *Map) PanTo(center geo.LatLng, opts ViewOptions) {
	m.options.Center = center
	m.execute("panTo", center, opts)
}

// FitBounds changes the view to show bounds.
func (m *Map) FitBounds(bounds geo.Bounds, opts FitBoundsOptions) {
	m.options.Center = bounds.Center()
	m.execute("fitBounds", bounds, opts)
}

// SetMaxBounds restricts panning to bounds.
func (m *Map) SetMaxBounds(bounds geo.Bounds) {
	m.options.MaxBounds = &bounds
	m.execute("setMaxBounds", bounds)
}

// SetMinZoom sets the lowest zoom level.
func (m *Map) SetMinZoom(zoom float64) {
	m.options.MinZoom = zoom
	m.execute("setMinZoom", zoom)
}

// SetMaxZoom sets the highest zoom level.
func (m *Map) SetMaxZoom(zoom float64) {
	m.options.MaxZoom = zoom
	m.execute("setMaxZoom", zoom)
}

// Locate asks the browser for the user's position. Results arrive as
// locationfound and locationerror events.
func (m *Map) Locate(opts LocateOptions) {
	m.execute("locate", opts)
}

// StopLocate stops watching the position.
func (m *Map) StopLocate() {
	m.execute("stopLocate")
}

// InvalidateSize makes the browser re-measure the map container.
func (m *Map) InvalidateSize() {
	m.execute("invalidateSize")
}

// OpenPopup attaches p to the map and opens it at latLng.
func (m *Map) OpenPopup(p *Popup, latLng geo.LatLng) error {
	p.latLng = &latLng
	if err := m.root.AddLayer(p); err != nil {
		return err
	}
	m.execute("openPopup", p)
	return nil
}

// ClosePopup closes p and detaches it from the map.
func (m *Map) ClosePopup(p *Popup) {
	if _, ok := m.root.detach(p.ID()); !ok {
		return
	}
	m.execute("closePopup", p.ID())
}

// GetZoom reads the zoom level from the browser.
func (m *Map) GetZoom(ctx context.Context) *bridge.Future[float64] {
	return call[float64](ctx, m, "getZoom")
}

// GetCenter reads the center from the browser.
func (m *Map) GetCenter(ctx context.Context) *bridge.Future[geo.LatLng] {
	return call[geo.LatLng](ctx, m, "getCenter")
}

// GetBounds reads the visible bounds from the browser.
func (m *Map) GetBounds(ctx context.Context) *bridge.Future[geo.Bounds] {
	return call[geo.Bounds](ctx, m, "getBounds")
}

// GetSize reads the container size in pixels from the browser.
func (m *Map) GetSize(ctx context.Context) *bridge.Future[geo.Point] {
	return call[geo.Point](ctx, m, "getSize")
}

// OnLoad registers fn for the map becoming ready.
func (m *Map) OnLoad(fn func(*events.MapEvent)) *events.Listener {
	return m.On(events.Load, events.Handle(fn))
}

// OnMoveEnd registers fn for the end of a pan.
func (m *Map) OnMoveEnd(fn func(*events.MapEvent)) *events.Listener {
	return m.On(events.MoveEnd, events.Handle(fn))
}

// OnZoomEnd registers fn for the end of a zoom change.
func (m *Map) OnZoomEnd(fn func(*events.MapEvent)) *events.Listener {
	return m.On(events.ZoomEnd, events.Handle(fn))
}

// OnZoomAnim registers fn for zoom animation frames.
func (m *Map) OnZoomAnim(fn func(*events.ZoomAnimEvent)) *events.Listener {
	return m.On(events.ZoomAnim, events.Handle(fn))
}

// OnResize registers fn for container size changes.
func (m *Map) OnResize(fn func(*events.ResizeEvent)) *events.Listener {
	return m.On(events.Resize, events.Handle(fn))
}

// OnLocationFound registers fn for successful geolocation.
func (m *Map) OnLocationFound(fn func(*events.LocationEvent)) *events.Listener {
	return m.On(events.LocationFound, events.Handle(fn))
}

// OnLocationError registers fn for failed geolocation.
func (m *Map) OnLocationError(fn func(*events.ErrorEvent)) *events.Listener {
	return m.On(events.LocationError, events.Handle(fn))
}

// OnKeyDown registers fn for key presses on the map.
func (m *Map) OnKeyDown(fn func(*events.KeyboardEvent)) *events.Listener {
	return m.On(events.KeyDown, events.Handle(fn))
}

// OnLayerAdd registers fn for layers added anywhere on the map.
func (m *Map) OnLayerAdd(fn func(*events.LayerEvent)) *events.Listener {
	return m.On(events.LayerAdd, events.Handle(fn))
}

// OnLayerRemove registers fn for layers removed from the map.
func (m *Map) OnLayerRemove(fn func(*events.LayerEvent)) *events.Listener {
	return m.On(events.LayerRemove, events.Handle(fn))
}

// OnBaseLayerChange registers fn for base layer switches.
func (m *Map) OnBaseLayerChange(fn func(*events.LayerEvent)) *events.Listener {
	return m.On(events.BaseLayerChange, events.Handle(fn))
}

// OnOverlayAdd registers fn for overlays switched on.
func (m *Map) OnOverlayAdd(fn func(*events.LayerEvent)) *events.Listener {
	return m.On(events.OverlayAdd, events.Handle(fn))
}

// OnOverlayRemove registers fn for overlays switched off.
func (m *Map) OnOverlayRemove(fn func(*events.LayerEvent)) *events.Listener {
	return m.On(events.OverlayRemove, events.Handle(fn))
}

// Dispatch routes an inbound event message. The event name is resolved
// first; unknown names are dropped with a warning. The target id is then
// looked up in the tree and falls back to the map itself. The payload is
// decoded for the event's family and fired on the target's bus.
func (m *Map) Dispatch(msg *bridge.Message) (events.Event, error) {
	typ, ok := m.registry.Resolve(msg.EventTypeName)
	if !ok {
		m.logger.Warn().
			Str("event", msg.EventTypeName).
			Str("target_id", msg.TargetID).
			Msg("Dropping event of unknown type")
		return nil, errors.NewNotFoundError("event type", msg.EventTypeName)
	}

	target, found := m.Lookup(msg.TargetID)
	if !found {
		if msg.TargetID != "" {
			m.logger.Debug().
				Str("event", typ.Name()).
				Str("target_id", msg.TargetID).
				Msg("Event target not in tree, dispatching on map")
		}
		target = m
	}

	e, err := m.registry.Decode(target, typ.Name(), msg.Payload)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("event", typ.Name()).
			Str("target_id", target.ID()).
			Msg("Dropping event with malformed payload")
		return nil, err
	}

	bus := target.Events()
	bus.SetLogger(m.logger)
	n := bus.Fire(e)
	m.logger.Trace().
		Str("event", typ.Name()).
		Str("target_id", target.ID()).
		Int("listeners", n).
		Msg("Dispatched event")
	return e, nil
}
