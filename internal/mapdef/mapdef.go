// Package mapdef reads YAML map definitions and builds them into a
// leaflet.Map. The console loads them with --load and the server seeds
// every new session from one with --map.
package mapdef

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/geo"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

// Layer kinds accepted in a definition.
const (
	KindTile         = "tile"
	KindImage        = "image"
	KindMarker       = "marker"
	KindCircle       = "circle"
	KindCircleMarker = "circleMarker"
	KindPolyline     = "polyline"
	KindPolygon      = "polygon"
	KindRectangle    = "rectangle"
	KindGroup        = "group"
	KindFeatureGroup = "featureGroup"
)

// Control kinds accepted in a definition.
const (
	ControlZoom        = "zoom"
	ControlScale       = "scale"
	ControlAttribution = "attribution"
	ControlLayers      = "layers"
)

// Definition is a whole map.
type Definition struct {
	Map      View         `yaml:"map"`
	Controls []ControlDef `yaml:"controls,omitempty"`
	Layers   []LayerDef   `yaml:"layers,omitempty"`
}

// View is the initial view of the map.
type View struct {
	Center  geo.LatLng `yaml:"center"`
	Zoom    float64    `yaml:"zoom"`
	MinZoom float64    `yaml:"minZoom,omitempty"`
	MaxZoom float64    `yaml:"maxZoom,omitempty"`
}

// ControlDef is one control.
type ControlDef struct {
	Kind      string `yaml:"kind"`
	Position  string `yaml:"position,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Collapsed bool   `yaml:"collapsed,omitempty"`
	Metric    *bool  `yaml:"metric,omitempty"`
	Imperial  *bool  `yaml:"imperial,omitempty"`
}

// LayerDef is one layer. Which fields apply depends on Kind.
type LayerDef struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id,omitempty"`

	// Name lists the layer in a layers control, as a base layer when
	// Base is set and as an overlay otherwise.
	Name string `yaml:"name,omitempty"`
	Base bool   `yaml:"base,omitempty"`

	LatLng  *geo.LatLng  `yaml:"latlng,omitempty"`
	LatLngs []geo.LatLng `yaml:"latlngs,omitempty"`
	Bounds  *geo.Bounds  `yaml:"bounds,omitempty"`
	Radius  float64      `yaml:"radius,omitempty"`
	URL     string       `yaml:"url,omitempty"`

	Style  leaflet.PathOptions         `yaml:"style,omitempty"`
	Marker leaflet.MarkerOptions       `yaml:"marker,omitempty"`
	Tile   leaflet.TileLayerOptions    `yaml:"tile,omitempty"`
	Image  leaflet.ImageOverlayOptions `yaml:"image,omitempty"`

	Popup   string `yaml:"popup,omitempty"`
	Tooltip string `yaml:"tooltip,omitempty"`

	Layers []LayerDef `yaml:"layers,omitempty"`
}

// Load reads and validates the definition at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a definition. Unknown fields are errors.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.UnmarshalWithOptions(data, &def, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.WrapDecode("map definition", "mapdef.Definition", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Marshal renders def as YAML.
func Marshal(def *Definition) ([]byte, error) {
	return yaml.MarshalWithOptions(def, yaml.Indent(2), yaml.IndentSequence(true))
}

// MapOptions returns map options for a map created from def.
func (d *Definition) MapOptions() leaflet.MapOptions {
	o := leaflet.DefaultMapOptions()
	o.Center = d.Map.Center
	if d.Map.Zoom != 0 {
		o.Zoom = d.Map.Zoom
	}
	o.MinZoom = d.Map.MinZoom
	o.MaxZoom = d.Map.MaxZoom
	return o
}

// Validate checks kinds, required fields and id uniqueness.
func (d *Definition) Validate() error {
	if d.Map.MaxZoom != 0 && d.Map.MinZoom > d.Map.MaxZoom {
		return errors.NewValidationError("map.minZoom", d.Map.MinZoom, "must not exceed maxZoom")
	}
	layersControls := 0
	for i, c := range d.Controls {
		field := fmt.Sprintf("controls[%d]", i)
		switch c.Kind {
		case ControlZoom, ControlScale, ControlAttribution:
		case ControlLayers:
			layersControls++
		default:
			return errors.NewValidationError(field+".kind", c.Kind, "unknown control kind")
		}
	}
	if layersControls > 1 {
		return errors.NewValidationError("controls", layersControls, "at most one layers control")
	}

	seen := make(map[string]string)
	return validateLayers(d.Layers, "layers", seen)
}

func validateLayers(layers []LayerDef, path string, seen map[string]string) error {
	for i, l := range layers {
		field := fmt.Sprintf("%s[%d]", path, i)
		if l.ID != "" {
			if prev, dup := seen[l.ID]; dup {
				return errors.NewValidationError(field+".id", l.ID, "duplicate id, first used at "+prev)
			}
			seen[l.ID] = field
		}
		if err := l.validate(field); err != nil {
			return err
		}
		if len(l.Layers) > 0 {
			if l.Kind != KindGroup && l.Kind != KindFeatureGroup {
				return errors.NewValidationError(field+".layers", len(l.Layers), "only groups have child layers")
			}
			if err := validateLayers(l.Layers, field+".layers", seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l LayerDef) validate(field string) error {
	need := func(ok bool, name, msg string) error {
		if ok {
			return nil
		}
		return errors.NewValidationError(field+"."+name, nil, msg)
	}
	switch l.Kind {
	case KindTile:
		return need(l.URL != "", "url", "tile layer needs a url template")
	case KindImage:
		if err := need(l.URL != "", "url", "image overlay needs a url"); err != nil {
			return err
		}
		return need(l.Bounds != nil, "bounds", "image overlay needs bounds")
	case KindMarker:
		return need(l.LatLng != nil, "latlng", "marker needs a position")
	case KindCircle, KindCircleMarker:
		if err := need(l.LatLng != nil, "latlng", "circle needs a center"); err != nil {
			return err
		}
		return need(l.Radius > 0, "radius", "circle needs a positive radius")
	case KindPolyline:
		return need(len(l.LatLngs) >= 2, "latlngs", "polyline needs at least two points")
	case KindPolygon:
		return need(len(l.LatLngs) >= 3, "latlngs", "polygon needs at least three points")
	case KindRectangle:
		return need(l.Bounds != nil, "bounds", "rectangle needs bounds")
	case KindGroup, KindFeatureGroup:
		return nil
	default:
		return errors.NewValidationError(field+".kind", l.Kind, "unknown layer kind")
	}
}
