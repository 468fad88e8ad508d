package events

import "github.com/gubancs/leafmap/pkg/geo"

// Target is the entity an event fired on.
type Target interface {
	ID() string
	Kind() string
}

// Event is implemented by every payload struct in this package.
type Event interface {
	Target() Target
	Type() Type
}

// Header carries the fields common to all events.
type Header struct {
	target Target
	typ    Type
}

// NewHeader builds the common part of an event.
func NewHeader(target Target, typ Type) Header {
	return Header{target: target, typ: typ}
}

// Target returns the entity the event was dispatched on.
func (h Header) Target() Target { return h.target }

// Type returns the resolved event-type variant.
func (h Header) Type() Type { return h.typ }

// MouseEvent is fired for pointer interaction.
type MouseEvent struct {
	Header
	LatLng         geo.LatLng
	LayerPoint     geo.Point
	ContainerPoint geo.Point
}

// DragEvent is fired while a marker is dragged.
type DragEvent struct {
	Header
	LatLng    geo.LatLng
	OldLatLng geo.LatLng
}

// DragEndEvent is fired when dragging stops.
type DragEndEvent struct {
	Header
	Distance float64
}

// PopupEvent is fired when a popup opens or closes.
type PopupEvent struct {
	Header
	PopupID string
}

// TooltipEvent is fired when a tooltip opens or closes.
type TooltipEvent struct {
	Header
	TooltipID string
}

// LocationEvent is fired when geolocation succeeds.
type LocationEvent struct {
	Header
	LatLng           geo.LatLng
	Bounds           geo.Bounds
	Accuracy         float64
	Altitude         float64
	AltitudeAccuracy float64
	Heading          float64
	Speed            float64
	Timestamp        int64
}

// ErrorEvent is fired when a remote operation such as geolocation fails.
type ErrorEvent struct {
	Header
	Code    int
	Message string
}

// MapEvent is a map state change without extra data.
type MapEvent struct {
	Header
}

// ResizeEvent is fired when the map container changes size.
type ResizeEvent struct {
	Header
	OldSize geo.Point
	NewSize geo.Point
}

// ZoomAnimEvent is fired on every frame of a zoom animation.
type ZoomAnimEvent struct {
	Header
	Center   geo.LatLng
	Zoom     float64
	NoUpdate bool
}

// KeyboardEvent is fired for key presses on the map container.
type KeyboardEvent struct {
	Header
	Key   string
	Code  string
	Alt   bool
	Ctrl  bool
	Shift bool
	Meta  bool
}

// LayerEvent is fired when layers are added, removed or switched.
type LayerEvent struct {
	Header
	LayerID string
	Name    string
}

// PluginEvent carries the raw payload of a plugin family that did not
// supply its own decoder.
type PluginEvent struct {
	Header
	Payload map[string]any
}
