package leaflet

import (
	"fmt"
	"weak"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

// Layer is an entity that lives in a group.
type Layer interface {
	Entity
	Parent() *Group
	AddTo(c Container) error
	Remove() error

	bound() []Entity
}

// Container accepts layers: a Map, a LayerGroup or a FeatureGroup.
type Container interface {
	container() *Group
}

// layerBase adds tree membership and popup/tooltip bindings to Base.
type layerBase struct {
	Base
	popup   *Popup
	tooltip *Tooltip
}

// AddTo attaches the layer to c and creates it remotely. A layer that is
// already attached elsewhere is detached from its old parent first;
// adding it to its current parent again does nothing.
func (l *layerBase) AddTo(c Container) error {
	g := c.container()
	layer := l.self.(Layer)
	if l.Parent() == g {
		return nil
	}
	if err := g.AddLayer(layer); err != nil {
		return err
	}
	g.exec("addLayer", layer)
	return nil
}

// Remove detaches the layer from its parent. Removing a detached layer
// does nothing.
func (l *layerBase) Remove() error {
	p := l.Parent()
	if p == nil {
		return nil
	}
	p.RemoveLayer(l.self.(Layer))
	return nil
}

// BindPopup binds p to the layer, replacing any previous popup.
func (l *layerBase) BindPopup(p *Popup) *Popup {
	if l.popup != nil && l.popup != p {
		l.UnbindPopup()
	}
	l.popup = p
	p.anchor = weak.Make(&l.Base)
	l.execute("bindPopup", p)
	return p
}

// BindPopupContent binds a new popup showing content.
func (l *layerBase) BindPopupContent(content string) *Popup {
	return l.BindPopup(NewPopup(content, PopupOptions{}))
}

// UnbindPopup removes the bound popup.
func (l *layerBase) UnbindPopup() {
	if l.popup == nil {
		return
	}
	l.execute("unbindPopup")
	l.popup.anchor = weak.Pointer[Base]{}
	l.popup = nil
}

// Popup returns the bound popup, or nil.
func (l *layerBase) Popup() *Popup { return l.popup }

// OpenPopup opens the bound popup.
func (l *layerBase) OpenPopup() error {
	if l.popup == nil {
		return errors.NewValidationError("popup", l.id, "no popup bound")
	}
	l.execute("openPopup")
	return nil
}

// ClosePopup closes the bound popup.
func (l *layerBase) ClosePopup() {
	if l.popup != nil {
		l.execute("closePopup")
	}
}

// TogglePopup opens or closes the bound popup.
func (l *layerBase) TogglePopup() {
	if l.popup != nil {
		l.execute("togglePopup")
	}
}

// BindTooltip binds t to the layer, replacing any previous tooltip.
func (l *layerBase) BindTooltip(t *Tooltip) *Tooltip {
	if l.tooltip != nil && l.tooltip != t {
		l.UnbindTooltip()
	}
	l.tooltip = t
	t.anchor = weak.Make(&l.Base)
	l.execute("bindTooltip", t)
	return t
}

// BindTooltipContent binds a new tooltip showing content.
func (l *layerBase) BindTooltipContent(content string) *Tooltip {
	return l.BindTooltip(NewTooltip(content, TooltipOptions{}))
}

// UnbindTooltip removes the bound tooltip.
func (l *layerBase) UnbindTooltip() {
	if l.tooltip == nil {
		return
	}
	l.execute("unbindTooltip")
	l.tooltip.anchor = weak.Pointer[Base]{}
	l.tooltip = nil
}

// Tooltip returns the bound tooltip, or nil.
func (l *layerBase) Tooltip() *Tooltip { return l.tooltip }

// OpenTooltip opens the bound tooltip.
func (l *layerBase) OpenTooltip() {
	if l.tooltip != nil {
		l.execute("openTooltip")
	}
}

// CloseTooltip closes the bound tooltip.
func (l *layerBase) CloseTooltip() {
	if l.tooltip != nil {
		l.execute("closeTooltip")
	}
}

// Snapshot includes bound popup and tooltip.
func (l *layerBase) Snapshot() Snapshot {
	s := l.Base.Snapshot()
	if l.popup != nil {
		ps := l.popup.Snapshot()
		s.Popup = &ps
	}
	if l.tooltip != nil {
		ts := l.tooltip.Snapshot()
		s.Tooltip = &ts
	}
	return s
}

func (l *layerBase) bound() []Entity {
	var out []Entity
	if l.popup != nil {
		out = append(out, l.popup)
	}
	if l.tooltip != nil {
		out = append(out, l.tooltip)
	}
	return out
}

func (b *Base) log() *zerolog.Logger {
	if m := b.Owner(); m != nil {
		return m.logger
	}
	return logging.Default()
}

func notAttached(e Entity, operation string) error {
	return fmt.Errorf("%s on %s %s: %w", operation, e.Kind(), e.ID(), errors.ErrNotAttached)
}
