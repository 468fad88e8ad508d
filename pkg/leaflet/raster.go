package leaflet

import (
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
)

type tileLayerState struct {
	URL     string           `json:"url" yaml:"url"`
	Options TileLayerOptions `json:"options" yaml:"options"`
}

// TileLayer draws map tiles from a URL template.
type TileLayer struct {
	layerBase
	url     string
	options TileLayerOptions
}

// NewTileLayer creates a detached tile layer for the template url, such
// as "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png".
func NewTileLayer(url string, options TileLayerOptions, opts ...Option) *TileLayer {
	t := &TileLayer{url: url, options: options}
	t.init(t, "TileLayer", applyOptions(opts))
	return t
}

func (t *TileLayer) state() any {
	return tileLayerState{URL: t.url, Options: t.options}
}

// URL returns the template.
func (t *TileLayer) URL() string { return t.url }

// SetURL switches the template.
func (t *TileLayer) SetURL(url string) {
	t.url = url
	t.execute("setUrl", url)
}

// SetOpacity changes the layer opacity.
func (t *TileLayer) SetOpacity(opacity float64) {
	t.options.Opacity = opacity
	t.execute("setOpacity", opacity)
}

// SetZIndex changes the stacking order.
func (t *TileLayer) SetZIndex(z int) {
	t.options.ZIndex = z
	t.execute("setZIndex", z)
}

// Redraw reloads every tile.
func (t *TileLayer) Redraw() { t.execute("redraw") }

// OnLoad registers fn for when all visible tiles have loaded.
func (t *TileLayer) OnLoad(fn func(*events.MapEvent)) *events.Listener {
	return t.On(events.Load, events.Handle(fn))
}

type imageOverlayState struct {
	URL     string              `json:"url" yaml:"url"`
	Bounds  geo.Bounds          `json:"bounds" yaml:"bounds"`
	Options ImageOverlayOptions `json:"options" yaml:"options"`
}

// ImageOverlay stretches an image over geographic bounds.
type ImageOverlay struct {
	layerBase
	url     string
	bounds  geo.Bounds
	options ImageOverlayOptions
}

// NewImageOverlay creates a detached image overlay.
func NewImageOverlay(url string, bounds geo.Bounds, options ImageOverlayOptions, opts ...Option) *ImageOverlay {
	o := &ImageOverlay{url: url, bounds: bounds, options: options}
	o.init(o, "ImageOverlay", applyOptions(opts))
	return o
}

func (o *ImageOverlay) state() any {
	return imageOverlayState{URL: o.url, Bounds: o.bounds, Options: o.options}
}

// URL returns the image URL.
func (o *ImageOverlay) URL() string { return o.url }

// Bounds returns the covered area.
func (o *ImageOverlay) Bounds() geo.Bounds { return o.bounds }

// SetURL swaps the image.
func (o *ImageOverlay) SetURL(url string) {
	o.url = url
	o.execute("setUrl", url)
}

// SetBounds moves the image.
func (o *ImageOverlay) SetBounds(bounds geo.Bounds) {
	o.bounds = bounds
	o.execute("setBounds", bounds)
}

// SetOpacity changes the image opacity.
func (o *ImageOverlay) SetOpacity(opacity float64) {
	o.options.Opacity = opacity
	o.execute("setOpacity", opacity)
}
