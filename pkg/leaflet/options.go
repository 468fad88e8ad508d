package leaflet

import "github.com/gubancs/leafmap/pkg/geo"

// Control positions.
const (
	TopLeft     = "topleft"
	TopRight    = "topright"
	BottomLeft  = "bottomleft"
	BottomRight = "bottomright"
)

// MapOptions are the construction options of a Map.
type MapOptions struct {
	Center             geo.LatLng  `json:"center" yaml:"center"`
	Zoom               float64     `json:"zoom" yaml:"zoom"`
	MinZoom            float64     `json:"minZoom,omitempty" yaml:"minZoom,omitempty"`
	MaxZoom            float64     `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty"`
	MaxBounds          *geo.Bounds `json:"maxBounds,omitempty" yaml:"maxBounds,omitempty"`
	ZoomControl        bool        `json:"zoomControl" yaml:"zoomControl"`
	AttributionControl bool        `json:"attributionControl" yaml:"attributionControl"`
	Dragging           bool        `json:"dragging" yaml:"dragging"`
	ScrollWheelZoom    bool        `json:"scrollWheelZoom" yaml:"scrollWheelZoom"`
	DoubleClickZoom    bool        `json:"doubleClickZoom" yaml:"doubleClickZoom"`
	Keyboard           bool        `json:"keyboard" yaml:"keyboard"`
}

// DefaultMapOptions mirrors the browser library defaults.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		Zoom:               1,
		ZoomControl:        true,
		AttributionControl: true,
		Dragging:           true,
		ScrollWheelZoom:    true,
		DoubleClickZoom:    true,
		Keyboard:           true,
	}
}

// ViewOptions control animated view changes.
type ViewOptions struct {
	Animate  bool    `json:"animate,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// FitBoundsOptions control FitBounds.
type FitBoundsOptions struct {
	Padding geo.Point `json:"padding,omitempty"`
	MaxZoom float64   `json:"maxZoom,omitempty"`
}

// LocateOptions control geolocation.
type LocateOptions struct {
	Watch              bool    `json:"watch,omitempty"`
	SetView            bool    `json:"setView,omitempty"`
	MaxZoom            float64 `json:"maxZoom,omitempty"`
	Timeout            int     `json:"timeout,omitempty"`
	MaximumAge         int     `json:"maximumAge,omitempty"`
	EnableHighAccuracy bool    `json:"enableHighAccuracy,omitempty"`
}

// Icon describes a marker image.
type Icon struct {
	IconURL     string     `json:"iconUrl" yaml:"iconUrl"`
	IconSize    *geo.Point `json:"iconSize,omitempty" yaml:"iconSize,omitempty"`
	IconAnchor  *geo.Point `json:"iconAnchor,omitempty" yaml:"iconAnchor,omitempty"`
	PopupAnchor *geo.Point `json:"popupAnchor,omitempty" yaml:"popupAnchor,omitempty"`
	ShadowURL   string     `json:"shadowUrl,omitempty" yaml:"shadowUrl,omitempty"`
	ClassName   string     `json:"className,omitempty" yaml:"className,omitempty"`
}

// MarkerOptions are the options of a Marker.
type MarkerOptions struct {
	Icon         *Icon   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Title        string  `json:"title,omitempty" yaml:"title,omitempty"`
	Alt          string  `json:"alt,omitempty" yaml:"alt,omitempty"`
	Opacity      float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Draggable    bool    `json:"draggable,omitempty" yaml:"draggable,omitempty"`
	ZIndexOffset int     `json:"zIndexOffset,omitempty" yaml:"zIndexOffset,omitempty"`
}

// PathOptions style vector layers.
type PathOptions struct {
	Stroke      *bool   `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Color       string  `json:"color,omitempty" yaml:"color,omitempty"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Fill        *bool   `json:"fill,omitempty" yaml:"fill,omitempty"`
	FillColor   string  `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty" yaml:"fillOpacity,omitempty"`
	DashArray   string  `json:"dashArray,omitempty" yaml:"dashArray,omitempty"`
	LineCap     string  `json:"lineCap,omitempty" yaml:"lineCap,omitempty"`
	LineJoin    string  `json:"lineJoin,omitempty" yaml:"lineJoin,omitempty"`
	Interactive *bool   `json:"interactive,omitempty" yaml:"interactive,omitempty"`
}

// TileLayerOptions configure a tile layer.
type TileLayerOptions struct {
	Attribution string  `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	MinZoom     float64 `json:"minZoom,omitempty" yaml:"minZoom,omitempty"`
	MaxZoom     float64 `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty"`
	Subdomains  string  `json:"subdomains,omitempty" yaml:"subdomains,omitempty"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	ZIndex      int     `json:"zIndex,omitempty" yaml:"zIndex,omitempty"`
	TileSize    int     `json:"tileSize,omitempty" yaml:"tileSize,omitempty"`
}

// ImageOverlayOptions configure an image overlay.
type ImageOverlayOptions struct {
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Alt         string  `json:"alt,omitempty" yaml:"alt,omitempty"`
	Interactive bool    `json:"interactive,omitempty" yaml:"interactive,omitempty"`
	ZIndex      int     `json:"zIndex,omitempty" yaml:"zIndex,omitempty"`
	ClassName   string  `json:"className,omitempty" yaml:"className,omitempty"`
}

// PopupOptions configure a popup.
type PopupOptions struct {
	MaxWidth    int    `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty"`
	MinWidth    int    `json:"minWidth,omitempty" yaml:"minWidth,omitempty"`
	AutoClose   *bool  `json:"autoClose,omitempty" yaml:"autoClose,omitempty"`
	CloseButton *bool  `json:"closeButton,omitempty" yaml:"closeButton,omitempty"`
	ClassName   string `json:"className,omitempty" yaml:"className,omitempty"`
}

// TooltipOptions configure a tooltip.
type TooltipOptions struct {
	Direction string    `json:"direction,omitempty" yaml:"direction,omitempty"`
	Permanent bool      `json:"permanent,omitempty" yaml:"permanent,omitempty"`
	Sticky    bool      `json:"sticky,omitempty" yaml:"sticky,omitempty"`
	Opacity   float64   `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Offset    geo.Point `json:"offset,omitempty" yaml:"offset,omitempty"`
	ClassName string    `json:"className,omitempty" yaml:"className,omitempty"`
}
