package leaflet

import (
	"context"
	"slices"
	"weak"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
)

// Group holds child layers in insertion order. A group can be added to
// another group or to a map.
type Group struct {
	layerBase
	children []Layer
	rootOf   *Map
}

// NewLayerGroup creates an empty group.
func NewLayerGroup(opts ...Option) *Group {
	g := &Group{}
	g.init(g, "LayerGroup", applyOptions(opts))
	return g
}

func newRootGroup(m *Map, s settings) *Group {
	g := &Group{rootOf: m}
	s.id = m.id + ":root"
	g.init(g, "LayerGroup", s)
	g.host = m
	return g
}

func (g *Group) container() *Group { return g }

func (g *Group) state() any { return nil }

// exec sends a structural command to the group's counterpart. The map's
// root group has none; its commands go to the map.
func (g *Group) exec(operation string, args ...any) {
	if g.rootOf != nil {
		g.rootOf.execute(operation, args...)
		return
	}
	g.execute(operation, args...)
}

// AddLayer appends child and makes g its parent. It does not create the
// child remotely; AddTo does both. A child attached to another group is
// removed from it first.
func (g *Group) AddLayer(child Layer) error {
	if child == nil {
		return errors.NewValidationError("layer", nil, "layer is required")
	}
	old := child.Parent()
	if old == g {
		return nil
	}
	if c, ok := child.(Container); ok {
		inner := c.container()
		for p := g; p != nil; p = p.Parent() {
			if p == inner {
				return errors.NewValidationError("layer", child.ID(), "group cannot contain itself")
			}
		}
	}
	if old != nil {
		old.RemoveLayer(child)
	}
	g.children = append(g.children, child)
	child.core().parent = weak.Make(g)
	return nil
}

// RemoveLayer detaches the child with the same id as child. Removing a
// layer that is not in the group only logs a warning.
func (g *Group) RemoveLayer(child Layer) {
	removed, ok := g.detach(child.ID())
	if !ok {
		g.log().Warn().
			Str("group_id", g.id).
			Str("layer_id", child.ID()).
			Msg("Layer not in group, nothing removed")
		return
	}
	if child != removed && child.Parent() == g {
		child.core().parent = weak.Pointer[Group]{}
	}
	g.exec("removeLayer", removed.ID())
}

// detach removes the child with id locally.
func (g *Group) detach(id string) (Layer, bool) {
	idx := slices.IndexFunc(g.children, func(l Layer) bool { return l.ID() == id })
	if idx < 0 {
		return nil, false
	}
	removed := g.children[idx]
	g.children = slices.Delete(g.children, idx, idx+1)
	if removed.Parent() == g {
		removed.core().parent = weak.Pointer[Group]{}
	}
	return removed, true
}

// HasLayer reports whether a child with child's id is in the group.
func (g *Group) HasLayer(child Layer) bool {
	return slices.ContainsFunc(g.children, func(l Layer) bool { return l.ID() == child.ID() })
}

// ClearLayers detaches every child.
func (g *Group) ClearLayers() {
	if len(g.children) == 0 {
		return
	}
	for _, c := range g.children {
		if c.Parent() == g {
			c.core().parent = weak.Pointer[Group]{}
		}
	}
	g.children = nil
	g.exec("clearLayers")
}

// Layers returns the children in insertion order.
func (g *Group) Layers() []Layer {
	return slices.Clone(g.children)
}

// EachLayer calls fn for every child.
func (g *Group) EachLayer(fn func(Layer)) {
	for _, c := range slices.Clone(g.children) {
		fn(c)
	}
}

// Len returns the number of children.
func (g *Group) Len() int { return len(g.children) }

// FindLayer returns the entity with id in the subtree rooted at g,
// searching depth-first in pre-order: the group itself, then each child
// with nested groups searched before their later siblings. Bound popups
// and tooltips are found too.
func (g *Group) FindLayer(id string) (Entity, bool) {
	if g.rootOf == nil {
		if g.id == id {
			return g.self, true
		}
		if e, ok := findBound(g, id); ok {
			return e, true
		}
	}
	for _, child := range g.children {
		if c, ok := child.(Container); ok {
			if e, ok := c.container().FindLayer(id); ok {
				return e, true
			}
			continue
		}
		if child.ID() == id {
			return child, true
		}
		if e, ok := findBound(child, id); ok {
			return e, true
		}
	}
	return nil, false
}

func findBound(l Layer, id string) (Entity, bool) {
	for _, e := range l.bound() {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Snapshot includes the children.
func (g *Group) Snapshot() Snapshot {
	s := g.layerBase.Snapshot()
	for _, c := range g.children {
		s.Children = append(s.Children, c.Snapshot())
	}
	return s
}

// OnLayerAdd registers fn for layers added to the group remotely.
func (g *Group) OnLayerAdd(fn func(*events.LayerEvent)) *events.Listener {
	return g.On(events.LayerAdd, events.Handle(fn))
}

// OnLayerRemove registers fn for layers removed from the group remotely.
func (g *Group) OnLayerRemove(fn func(*events.LayerEvent)) *events.Listener {
	return g.On(events.LayerRemove, events.Handle(fn))
}

// FeatureGroup is a group that styles its vector children together and
// knows their combined bounds.
type FeatureGroup struct {
	Group
}

// NewFeatureGroup creates an empty feature group.
func NewFeatureGroup(opts ...Option) *FeatureGroup {
	fg := &FeatureGroup{}
	fg.init(fg, "FeatureGroup", applyOptions(opts))
	return fg
}

type styler interface {
	SetStyle(PathOptions)
}

type stacker interface {
	BringToFront()
	BringToBack()
}

type bounded interface {
	Bounds() geo.Bounds
}

// SetStyle applies style to every vector child.
func (fg *FeatureGroup) SetStyle(style PathOptions) {
	fg.EachLayer(func(l Layer) {
		if s, ok := l.(styler); ok {
			s.SetStyle(style)
		}
	})
}

// BringToFront raises every vector child.
func (fg *FeatureGroup) BringToFront() {
	fg.EachLayer(func(l Layer) {
		if s, ok := l.(stacker); ok {
			s.BringToFront()
		}
	})
}

// BringToBack lowers every vector child.
func (fg *FeatureGroup) BringToBack() {
	fg.EachLayer(func(l Layer) {
		if s, ok := l.(stacker); ok {
			s.BringToBack()
		}
	})
}

// Bounds returns the combined bounds of the children with a known extent.
// ok is false when no child has one.
func (fg *FeatureGroup) Bounds() (b geo.Bounds, ok bool) {
	fg.EachLayer(func(l Layer) {
		var lb geo.Bounds
		switch v := l.(type) {
		case bounded:
			lb = v.Bounds()
		case *Marker:
			lb = geo.BoundsOf(v.LatLng())
		case *FeatureGroup:
			var has bool
			if lb, has = v.Bounds(); !has {
				return
			}
		default:
			return
		}
		if !ok {
			b, ok = lb, true
			return
		}
		b = b.Extend(lb.SouthWest).Extend(lb.NorthEast)
	})
	return b, ok
}

// GetBounds asks the remote side for the rendered bounds of the group.
func (fg *FeatureGroup) GetBounds(ctx context.Context) *bridge.Future[geo.Bounds] {
	return call[geo.Bounds](ctx, fg, "getBounds")
}
