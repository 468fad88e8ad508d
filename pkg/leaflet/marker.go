package leaflet

import (
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
)

// Marker is a clickable icon at a position.
type Marker struct {
	layerBase
	latLng  geo.LatLng
	options MarkerOptions
}

type markerState struct {
	LatLng  geo.LatLng    `json:"latLng" yaml:"latLng"`
	Options MarkerOptions `json:"options" yaml:"options"`
}

// NewMarker creates a detached marker.
func NewMarker(latLng geo.LatLng, options MarkerOptions, opts ...Option) *Marker {
	m := &Marker{latLng: latLng, options: options}
	m.init(m, "Marker", applyOptions(opts))
	return m
}

func (m *Marker) state() any {
	return markerState{LatLng: m.latLng, Options: m.options}
}

// LatLng returns the marker position.
func (m *Marker) LatLng() geo.LatLng { return m.latLng }

// Options returns the marker options.
func (m *Marker) Options() MarkerOptions { return m.options }

// SetLatLng moves the marker.
func (m *Marker) SetLatLng(latLng geo.LatLng) {
	m.latLng = latLng
	m.execute("setLatLng", latLng)
}

// SetOpacity changes the icon opacity.
func (m *Marker) SetOpacity(opacity float64) {
	m.options.Opacity = opacity
	m.execute("setOpacity", opacity)
}

// SetIcon replaces the icon.
func (m *Marker) SetIcon(icon Icon) {
	m.options.Icon = &icon
	m.execute("setIcon", icon)
}

// SetZIndexOffset changes the stacking offset.
func (m *Marker) SetZIndexOffset(offset int) {
	m.options.ZIndexOffset = offset
	m.execute("setZIndexOffset", offset)
}

// SetDraggable enables or disables dragging.
func (m *Marker) SetDraggable(draggable bool) {
	m.options.Draggable = draggable
	if draggable {
		m.execute("enableDragging")
		return
	}
	m.execute("disableDragging")
}

// OnDragStart registers fn for the start of a drag.
func (m *Marker) OnDragStart(fn func(*events.DragEvent)) *events.Listener {
	return m.On(events.DragStart, events.Handle(fn))
}

// OnDrag registers fn for drag moves.
func (m *Marker) OnDrag(fn func(*events.DragEvent)) *events.Listener {
	return m.On(events.Drag, events.Handle(fn))
}

// OnDragEnd registers fn for the end of a drag.
func (m *Marker) OnDragEnd(fn func(*events.DragEndEvent)) *events.Listener {
	return m.On(events.DragEnd, events.Handle(fn))
}
