package leaflet

import (
	"github.com/gubancs/leafmap/pkg/geo"
)

// path is the styled part shared by vector layers.
type path struct {
	layerBase
	style PathOptions
}

// Style returns the current style.
func (p *path) Style() PathOptions { return p.style }

// SetStyle merges the set fields of style into the current style.
func (p *path) SetStyle(style PathOptions) {
	p.style = mergeStyle(p.style, style)
	p.execute("setStyle", style)
}

// BringToFront draws the layer above other vector layers.
func (p *path) BringToFront() { p.execute("bringToFront") }

// BringToBack draws the layer below other vector layers.
func (p *path) BringToBack() { p.execute("bringToBack") }

// Redraw forces the remote side to redraw the layer.
func (p *path) Redraw() { p.execute("redraw") }

func mergeStyle(dst, src PathOptions) PathOptions {
	if src.Stroke != nil {
		dst.Stroke = src.Stroke
	}
	if src.Color != "" {
		dst.Color = src.Color
	}
	if src.Weight != 0 {
		dst.Weight = src.Weight
	}
	if src.Opacity != 0 {
		dst.Opacity = src.Opacity
	}
	if src.Fill != nil {
		dst.Fill = src.Fill
	}
	if src.FillColor != "" {
		dst.FillColor = src.FillColor
	}
	if src.FillOpacity != 0 {
		dst.FillOpacity = src.FillOpacity
	}
	if src.DashArray != "" {
		dst.DashArray = src.DashArray
	}
	if src.LineCap != "" {
		dst.LineCap = src.LineCap
	}
	if src.LineJoin != "" {
		dst.LineJoin = src.LineJoin
	}
	if src.Interactive != nil {
		dst.Interactive = src.Interactive
	}
	return dst
}

type polylineState struct {
	LatLngs []geo.LatLng `json:"latLngs" yaml:"latLngs"`
	Style   PathOptions  `json:"style" yaml:"style"`
}

// Polyline is an open line through a list of positions.
type Polyline struct {
	path
	latLngs []geo.LatLng
}

// NewPolyline creates a detached polyline.
func NewPolyline(latLngs []geo.LatLng, style PathOptions, opts ...Option) *Polyline {
	p := &Polyline{path: path{style: style}, latLngs: append([]geo.LatLng(nil), latLngs...)}
	p.init(p, "Polyline", applyOptions(opts))
	return p
}

func (p *Polyline) state() any {
	return polylineState{LatLngs: p.latLngs, Style: p.style}
}

// LatLngs returns a copy of the vertices.
func (p *Polyline) LatLngs() []geo.LatLng {
	return append([]geo.LatLng(nil), p.latLngs...)
}

// SetLatLngs replaces the vertices.
func (p *Polyline) SetLatLngs(latLngs []geo.LatLng) {
	p.latLngs = append([]geo.LatLng(nil), latLngs...)
	p.execute("setLatLngs", p.latLngs)
}

// AddLatLng appends a vertex.
func (p *Polyline) AddLatLng(latLng geo.LatLng) {
	p.latLngs = append(p.latLngs, latLng)
	p.execute("addLatLng", latLng)
}

// IsEmpty reports whether the line has no vertices.
func (p *Polyline) IsEmpty() bool { return len(p.latLngs) == 0 }

// Bounds returns the extent of the vertices.
func (p *Polyline) Bounds() geo.Bounds { return geo.BoundsOf(p.latLngs...) }

// Polygon is a closed, filled Polyline.
type Polygon struct {
	Polyline
}

// NewPolygon creates a detached polygon.
func NewPolygon(latLngs []geo.LatLng, style PathOptions, opts ...Option) *Polygon {
	p := &Polygon{Polyline{path: path{style: style}, latLngs: append([]geo.LatLng(nil), latLngs...)}}
	p.init(p, "Polygon", applyOptions(opts))
	return p
}

type rectangleState struct {
	Bounds geo.Bounds  `json:"bounds" yaml:"bounds"`
	Style  PathOptions `json:"style" yaml:"style"`
}

// Rectangle is an axis-aligned polygon.
type Rectangle struct {
	path
	bounds geo.Bounds
}

// NewRectangle creates a detached rectangle.
func NewRectangle(bounds geo.Bounds, style PathOptions, opts ...Option) *Rectangle {
	r := &Rectangle{path: path{style: style}, bounds: bounds}
	r.init(r, "Rectangle", applyOptions(opts))
	return r
}

func (r *Rectangle) state() any {
	return rectangleState{Bounds: r.bounds, Style: r.style}
}

// Bounds returns the rectangle extent.
func (r *Rectangle) Bounds() geo.Bounds { return r.bounds }

// SetBounds reshapes the rectangle.
func (r *Rectangle) SetBounds(bounds geo.Bounds) {
	r.bounds = bounds
	r.execute("setBounds", bounds)
}

type circleState struct {
	LatLng geo.LatLng  `json:"latLng" yaml:"latLng"`
	Radius float64     `json:"radius" yaml:"radius"`
	Style  PathOptions `json:"style" yaml:"style"`
}

// Circle is a circle with a radius in meters.
type Circle struct {
	path
	center geo.LatLng
	radius float64
}

// NewCircle creates a detached circle.
func NewCircle(center geo.LatLng, radius float64, style PathOptions, opts ...Option) *Circle {
	c := &Circle{path: path{style: style}, center: center, radius: radius}
	c.init(c, "Circle", applyOptions(opts))
	return c
}

func (c *Circle) state() any {
	return circleState{LatLng: c.center, Radius: c.radius, Style: c.style}
}

// LatLng returns the center.
func (c *Circle) LatLng() geo.LatLng { return c.center }

// Radius returns the radius.
func (c *Circle) Radius() float64 { return c.radius }

// SetLatLng moves the center.
func (c *Circle) SetLatLng(center geo.LatLng) {
	c.center = center
	c.execute("setLatLng", center)
}

// SetRadius changes the radius.
func (c *Circle) SetRadius(radius float64) {
	c.radius = radius
	c.execute("setRadius", radius)
}

// CircleMarker is a circle with a radius in pixels.
type CircleMarker struct {
	Circle
}

// NewCircleMarker creates a detached circle marker.
func NewCircleMarker(center geo.LatLng, radius float64, style PathOptions, opts ...Option) *CircleMarker {
	c := &CircleMarker{Circle{path: path{style: style}, center: center, radius: radius}}
	c.init(c, "CircleMarker", applyOptions(opts))
	return c
}
