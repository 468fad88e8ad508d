package mapdef

import (
	"github.com/gubancs/leafmap/pkg/leaflet"
)

// Result counts what Apply built.
type Result struct {
	Layers   int `json:"layers" yaml:"layers"`
	Controls int `json:"controls" yaml:"controls"`
}

type named struct {
	layer leaflet.Layer
	name  string
	base  bool
}

// Apply sets the view of m and adds the controls and layers of d. Each
// layer is added with AddTo, so an attached map also builds it remotely.
// It must run on the map's owner loop.
func (d *Definition) Apply(m *leaflet.Map) (Result, error) {
	var res Result
	if err := d.Validate(); err != nil {
		return res, err
	}

	m.SetView(d.Map.Center, d.MapOptions().Zoom, leaflet.ViewOptions{})
	if d.Map.MinZoom != 0 {
		m.SetMinZoom(d.Map.MinZoom)
	}
	if d.Map.MaxZoom != 0 {
		m.SetMaxZoom(d.Map.MaxZoom)
	}

	var listed []named
	if err := addLayers(m, d.Layers, &listed, &res); err != nil {
		return res, err
	}

	for _, c := range d.Controls {
		ctl := buildControl(c)
		if lc, ok := ctl.(*leaflet.LayersControl); ok {
			for _, n := range listed {
				if n.base {
					lc.AddBaseLayer(n.layer, n.name)
				} else {
					lc.AddOverlay(n.layer, n.name)
				}
			}
		}
		m.AddControl(ctl)
		res.Controls++
	}
	return res, nil
}

func addLayers(parent leaflet.Container, defs []LayerDef, listed *[]named, res *Result) error {
	for _, def := range defs {
		l := buildLayer(def)
		if err := l.AddTo(parent); err != nil {
			return err
		}
		res.Layers++

		if def.Name != "" {
			*listed = append(*listed, named{layer: l, name: def.Name, base: def.Base})
		}
		if def.Popup != "" {
			l.(popupBinder).BindPopupContent(def.Popup)
		}
		if def.Tooltip != "" {
			l.(popupBinder).BindTooltipContent(def.Tooltip)
		}

		if c, ok := l.(leaflet.Container); ok && len(def.Layers) > 0 {
			if err := addLayers(c, def.Layers, listed, res); err != nil {
				return err
			}
		}
	}
	return nil
}

type popupBinder interface {
	BindPopupContent(content string) *leaflet.Popup
	BindTooltipContent(content string) *leaflet.Tooltip
}

func buildLayer(def LayerDef) leaflet.Layer {
	var opts []leaflet.Option
	if def.ID != "" {
		opts = append(opts, leaflet.WithID(def.ID))
	}

	switch def.Kind {
	case KindTile:
		return leaflet.NewTileLayer(def.URL, def.Tile, opts...)
	case KindImage:
		return leaflet.NewImageOverlay(def.URL, *def.Bounds, def.Image, opts...)
	case KindMarker:
		return leaflet.NewMarker(*def.LatLng, def.Marker, opts...)
	case KindCircle:
		return leaflet.NewCircle(*def.LatLng, def.Radius, def.Style, opts...)
	case KindCircleMarker:
		return leaflet.NewCircleMarker(*def.LatLng, def.Radius, def.Style, opts...)
	case KindPolyline:
		return leaflet.NewPolyline(def.LatLngs, def.Style, opts...)
	case KindPolygon:
		return leaflet.NewPolygon(def.LatLngs, def.Style, opts...)
	case KindRectangle:
		return leaflet.NewRectangle(*def.Bounds, def.Style, opts...)
	case KindFeatureGroup:
		return leaflet.NewFeatureGroup(opts...)
	default:
		return leaflet.NewLayerGroup(opts...)
	}
}

func buildControl(def ControlDef) leaflet.Control {
	switch def.Kind {
	case ControlScale:
		o := leaflet.ScaleControlOptions{Position: def.Position, Metric: true, Imperial: true}
		if def.Metric != nil {
			o.Metric = *def.Metric
		}
		if def.Imperial != nil {
			o.Imperial = *def.Imperial
		}
		return leaflet.NewScaleControl(o)
	case ControlAttribution:
		c := leaflet.NewAttributionControl(def.Prefix)
		if def.Position != "" {
			c.SetPosition(def.Position)
		}
		return c
	case ControlLayers:
		return leaflet.NewLayersControl(leaflet.LayersControlOptions{
			Position:   def.Position,
			Collapsed:  def.Collapsed,
			AutoZIndex: true,
		})
	default:
		return leaflet.NewZoomControl(leaflet.ZoomControlOptions{Position: def.Position})
	}
}
