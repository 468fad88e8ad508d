package leaflet

import (
	"context"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/geo"
)

type popupState struct {
	Content string       `json:"content" yaml:"content"`
	LatLng  *geo.LatLng  `json:"latLng,omitempty" yaml:"latLng,omitempty"`
	Options PopupOptions `json:"options" yaml:"options"`
}

// Popup is an info window. It is either bound to a layer or opened on
// the map at a position.
type Popup struct {
	layerBase
	content string
	latLng  *geo.LatLng
	options PopupOptions
}

// NewPopup creates a popup showing content, which may contain HTML.
func NewPopup(content string, options PopupOptions, opts ...Option) *Popup {
	p := &Popup{content: content, options: options}
	p.init(p, "Popup", applyOptions(opts))
	return p
}

func (p *Popup) state() any {
	return popupState{Content: p.content, LatLng: p.latLng, Options: p.options}
}

// Content returns the popup content.
func (p *Popup) Content() string { return p.content }

// SetContent replaces the content.
func (p *Popup) SetContent(content string) {
	p.content = content
	p.execute("setContent", content)
}

// LatLng returns the position, if set.
func (p *Popup) LatLng() (geo.LatLng, bool) {
	if p.latLng == nil {
		return geo.LatLng{}, false
	}
	return *p.latLng, true
}

// SetLatLng positions the popup.
func (p *Popup) SetLatLng(latLng geo.LatLng) {
	p.latLng = &latLng
	p.execute("setLatLng", latLng)
}

// IsOpen asks the remote side whether the popup is shown.
func (p *Popup) IsOpen(ctx context.Context) *bridge.Future[bool] {
	return call[bool](ctx, p, "isOpen")
}

type tooltipState struct {
	Content string         `json:"content" yaml:"content"`
	LatLng  *geo.LatLng    `json:"latLng,omitempty" yaml:"latLng,omitempty"`
	Options TooltipOptions `json:"options" yaml:"options"`
}

// Tooltip is a small label shown on hover or permanently.
type Tooltip struct {
	layerBase
	content string
	latLng  *geo.LatLng
	options TooltipOptions
}

// NewTooltip creates a tooltip showing content.
func NewTooltip(content string, options TooltipOptions, opts ...Option) *Tooltip {
	t := &Tooltip{content: content, options: options}
	t.init(t, "Tooltip", applyOptions(opts))
	return t
}

func (t *Tooltip) state() any {
	return tooltipState{Content: t.content, LatLng: t.latLng, Options: t.options}
}

// Content returns the tooltip content.
func (t *Tooltip) Content() string { return t.content }

// SetContent replaces the content.
func (t *Tooltip) SetContent(content string) {
	t.content = content
	t.execute("setContent", content)
}

// SetLatLng positions the tooltip.
func (t *Tooltip) SetLatLng(latLng geo.LatLng) {
	t.latLng = &latLng
	t.execute("setLatLng", latLng)
}

// SetOpacity changes the tooltip opacity.
func (t *Tooltip) SetOpacity(opacity float64) {
	t.options.Opacity = opacity
	t.execute("setOpacity", opacity)
}
