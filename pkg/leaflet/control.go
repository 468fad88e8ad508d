package leaflet

import (
	"slices"

	"github.com/gubancs/leafmap/pkg/events"
)

// Control is a UI element placed in a corner of the map. Controls belong
// to a map, never to a group.
type Control interface {
	Entity
	Position() string
	SetPosition(position string)
	Remove() error
}

// controlBase is the part shared by every control.
type controlBase struct {
	Base
	position string
}

// Position returns the corner the control sits in.
func (c *controlBase) Position() string { return c.position }

// SetPosition moves the control to another corner.
func (c *controlBase) SetPosition(position string) {
	c.position = position
	c.execute("setPosition", position)
}

// Remove takes the control off its map.
func (c *controlBase) Remove() error {
	m := c.Owner()
	if m == nil {
		return nil
	}
	m.RemoveControl(c.self.(Control))
	return nil
}

// ZoomControlOptions configure the zoom buttons.
type ZoomControlOptions struct {
	Position     string `json:"position,omitempty" yaml:"position,omitempty"`
	ZoomInText   string `json:"zoomInText,omitempty" yaml:"zoomInText,omitempty"`
	ZoomInTitle  string `json:"zoomInTitle,omitempty" yaml:"zoomInTitle,omitempty"`
	ZoomOutText  string `json:"zoomOutText,omitempty" yaml:"zoomOutText,omitempty"`
	ZoomOutTitle string `json:"zoomOutTitle,omitempty" yaml:"zoomOutTitle,omitempty"`
}

// ZoomControl shows zoom in and out buttons.
type ZoomControl struct {
	controlBase
	options ZoomControlOptions
}

// NewZoomControl creates a zoom control.
func NewZoomControl(options ZoomControlOptions, opts ...Option) *ZoomControl {
	c := &ZoomControl{options: options}
	c.position = positionOr(options.Position, TopLeft)
	c.init(c, "Zoom", applyOptions(opts))
	return c
}

func (c *ZoomControl) state() any {
	o := c.options
	o.Position = c.position
	return o
}

// ScaleControlOptions configure the scale bar.
type ScaleControlOptions struct {
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
	MaxWidth int    `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty"`
	Metric   bool   `json:"metric" yaml:"metric"`
	Imperial bool   `json:"imperial" yaml:"imperial"`
}

// ScaleControl shows a distance scale.
type ScaleControl struct {
	controlBase
	options ScaleControlOptions
}

// NewScaleControl creates a scale control.
func NewScaleControl(options ScaleControlOptions, opts ...Option) *ScaleControl {
	c := &ScaleControl{options: options}
	c.position = positionOr(options.Position, BottomLeft)
	c.init(c, "Scale", applyOptions(opts))
	return c
}

func (c *ScaleControl) state() any {
	o := c.options
	o.Position = c.position
	return o
}

type attributionState struct {
	Position     string   `json:"position" yaml:"position"`
	Prefix       string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Attributions []string `json:"attributions,omitempty" yaml:"attributions,omitempty"`
}

// AttributionControl lists data sources.
type AttributionControl struct {
	controlBase
	prefix       string
	attributions []string
}

// NewAttributionControl creates an attribution control.
func NewAttributionControl(prefix string, opts ...Option) *AttributionControl {
	c := &AttributionControl{prefix: prefix}
	c.position = BottomRight
	c.init(c, "Attribution", applyOptions(opts))
	return c
}

func (c *AttributionControl) state() any {
	return attributionState{Position: c.position, Prefix: c.prefix, Attributions: c.attributions}
}

// SetPrefix changes the text before the attributions.
func (c *AttributionControl) SetPrefix(prefix string) {
	c.prefix = prefix
	c.execute("setPrefix", prefix)
}

// AddAttribution adds text unless it is already listed.
func (c *AttributionControl) AddAttribution(text string) {
	if slices.Contains(c.attributions, text) {
		return
	}
	c.attributions = append(c.attributions, text)
	c.execute("addAttribution", text)
}

// RemoveAttribution removes text.
func (c *AttributionControl) RemoveAttribution(text string) {
	idx := slices.Index(c.attributions, text)
	if idx < 0 {
		return
	}
	c.attributions = slices.Delete(c.attributions, idx, idx+1)
	c.execute("removeAttribution", text)
}

// Attributions returns the listed texts.
func (c *AttributionControl) Attributions() []string {
	return slices.Clone(c.attributions)
}

// LayersControlOptions configure the layer switcher.
type LayersControlOptions struct {
	Position       string `json:"position,omitempty" yaml:"position,omitempty"`
	Collapsed      bool   `json:"collapsed" yaml:"collapsed"`
	AutoZIndex     bool   `json:"autoZIndex" yaml:"autoZIndex"`
	HideSingleBase bool   `json:"hideSingleBase,omitempty" yaml:"hideSingleBase,omitempty"`
	SortLayers     bool   `json:"sortLayers,omitempty" yaml:"sortLayers,omitempty"`
}

// LayerEntry is one named layer of a LayersControl.
type LayerEntry struct {
	LayerID string `json:"layerId" yaml:"layerId"`
	Name    string `json:"name" yaml:"name"`
	layer   Layer
}

// Layer returns the listed layer.
func (e LayerEntry) Layer() Layer { return e.layer }

type layersState struct {
	Options    LayersControlOptions `json:"options" yaml:"options"`
	BaseLayers []LayerEntry         `json:"baseLayers,omitempty" yaml:"baseLayers,omitempty"`
	Overlays   []LayerEntry         `json:"overlays,omitempty" yaml:"overlays,omitempty"`
}

// LayersControl switches between base layers and toggles overlays.
type LayersControl struct {
	controlBase
	options    LayersControlOptions
	baseLayers []LayerEntry
	overlays   []LayerEntry
}

// NewLayersControl creates a layers control.
func NewLayersControl(options LayersControlOptions, opts ...Option) *LayersControl {
	c := &LayersControl{options: options}
	c.position = positionOr(options.Position, TopRight)
	c.init(c, "Layers", applyOptions(opts))
	return c
}

func (c *LayersControl) state() any {
	o := c.options
	o.Position = c.position
	return layersState{Options: o, BaseLayers: c.baseLayers, Overlays: c.overlays}
}

// AddBaseLayer lists l as a base layer under name.
func (c *LayersControl) AddBaseLayer(l Layer, name string) {
	c.baseLayers = append(c.baseLayers, LayerEntry{LayerID: l.ID(), Name: name, layer: l})
	c.execute("addBaseLayer", l, name)
}

// AddOverlay lists l as an overlay under name.
func (c *LayersControl) AddOverlay(l Layer, name string) {
	c.overlays = append(c.overlays, LayerEntry{LayerID: l.ID(), Name: name, layer: l})
	c.execute("addOverlay", l, name)
}

// RemoveLayer drops l from the control. The layer stays on the map.
func (c *LayersControl) RemoveLayer(l Layer) {
	match := func(e LayerEntry) bool { return e.LayerID == l.ID() }
	before := len(c.baseLayers) + len(c.overlays)
	c.baseLayers = slices.DeleteFunc(c.baseLayers, match)
	c.overlays = slices.DeleteFunc(c.overlays, match)
	if len(c.baseLayers)+len(c.overlays) != before {
		c.execute("removeLayer", l.ID())
	}
}

// BaseLayers returns the listed base layers.
func (c *LayersControl) BaseLayers() []LayerEntry { return slices.Clone(c.baseLayers) }

// Overlays returns the listed overlays.
func (c *LayersControl) Overlays() []LayerEntry { return slices.Clone(c.overlays) }

// Expand opens the control.
func (c *LayersControl) Expand() { c.execute("expand") }

// Collapse closes the control.
func (c *LayersControl) Collapse() { c.execute("collapse") }

// OnBaseLayerChange registers fn for base layer switches.
func (c *LayersControl) OnBaseLayerChange(fn func(*events.LayerEvent)) *events.Listener {
	return c.On(events.BaseLayerChange, events.Handle(fn))
}

func positionOr(position, fallback string) string {
	if position == "" {
		return fallback
	}
	return position
}
