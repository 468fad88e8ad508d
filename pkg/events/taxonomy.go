package events

import (
	"encoding/json"
	"fmt"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/geo"
)

// Decoder builds a typed Event from a raw inbound payload.
type Decoder func(h Header, payload json.RawMessage) (Event, error)

// Taxonomy is one family of event types plus the decoder for its payloads.
type Taxonomy struct {
	Family Family
	Types  []Type
	Decode Decoder
}

// CoreTaxonomies returns the families every registry starts with.
func CoreTaxonomies() []Taxonomy {
	return []Taxonomy{
		{
			Family: FamilyMouse,
			Types:  []Type{Click, DblClick, MouseDown, MouseUp, MouseOver, MouseOut, MouseMove, ContextMenu, PreClick},
			Decode: decodeMouse,
		},
		{
			Family: FamilyDrag,
			Types:  []Type{DragStart, Drag, DragEnd},
			Decode: decodeDrag,
		},
		{
			Family: FamilyPopup,
			Types:  []Type{PopupOpen, PopupClose},
			Decode: decodePopup,
		},
		{
			Family: FamilyTooltip,
			Types:  []Type{TooltipOpen, TooltipClose},
			Decode: decodeTooltip,
		},
		{
			Family: FamilyLocation,
			Types:  []Type{LocationFound, LocationError},
			Decode: decodeLocation,
		},
		{
			Family: FamilyMap,
			Types: []Type{
				Load, Unload, ViewReset, Resize, ZoomStart, Zoom, ZoomEnd,
				MoveStart, Move, MoveEnd, ZoomLevelsChange, ZoomAnim,
			},
			Decode: decodeMap,
		},
		{
			Family: FamilyKeyboard,
			Types:  []Type{KeyPress, KeyDown, KeyUp},
			Decode: decodeKeyboard,
		},
		{
			Family: FamilyLayer,
			Types:  []Type{Add, Remove, LayerAdd, LayerRemove, BaseLayerChange, OverlayAdd, OverlayRemove},
			Decode: decodeLayer,
		},
	}
}

// Payloads arrive as flat JSON objects. Each family reads its own
// fields; unknown fields are ignored.

type pointFields struct {
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Alt             float64 `json:"alt"`
	LayerPointX     float64 `json:"layerPointX"`
	LayerPointY     float64 `json:"layerPointY"`
	ContainerPointX float64 `json:"containerPointX"`
	ContainerPointY float64 `json:"containerPointY"`
}

func (p pointFields) latLng() geo.LatLng {
	return geo.LatLng{Lat: p.Lat, Lng: p.Lng, Alt: p.Alt}
}

type dragFields struct {
	pointFields
	OldLat   float64 `json:"oldLat"`
	OldLng   float64 `json:"oldLng"`
	Distance float64 `json:"distance"`
}

type locationFields struct {
	pointFields
	South            float64 `json:"south"`
	West             float64 `json:"west"`
	North            float64 `json:"north"`
	East             float64 `json:"east"`
	Accuracy         float64 `json:"accuracy"`
	Altitude         float64 `json:"altitude"`
	AltitudeAccuracy float64 `json:"altitudeAccuracy"`
	Heading          float64 `json:"heading"`
	Speed            float64 `json:"speed"`
	Timestamp        int64   `json:"timestamp"`
}

type errorFields struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type mapFields struct {
	pointFields
	OldWidth  float64 `json:"oldWidth"`
	OldHeight float64 `json:"oldHeight"`
	NewWidth  float64 `json:"newWidth"`
	NewHeight float64 `json:"newHeight"`
	Zoom      float64 `json:"zoom"`
	NoUpdate  bool    `json:"noUpdate"`
}

type keyboardFields struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	AltKey   bool   `json:"altKey"`
	CtrlKey  bool   `json:"ctrlKey"`
	ShiftKey bool   `json:"shiftKey"`
	MetaKey  bool   `json:"metaKey"`
}

type layerFields struct {
	LayerID   string `json:"layerId"`
	Name      string `json:"name"`
	PopupID   string `json:"popupId"`
	TooltipID string `json:"tooltipId"`
}

func readPayload[T any](h Header, raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, errors.NewDecodeError("payload", describe(h), err)
	}
	return p, nil
}

func describe(h Header) string {
	return fmt.Sprintf("%s event %q", h.typ.Family(), h.typ.Name())
}

func decodeMouse(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[pointFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &MouseEvent{
		Header:         h,
		LatLng:         p.latLng(),
		LayerPoint:     geo.Point{X: p.LayerPointX, Y: p.LayerPointY},
		ContainerPoint: geo.Point{X: p.ContainerPointX, Y: p.ContainerPointY},
	}, nil
}

func decodeDrag(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[dragFields](h, raw)
	if err != nil {
		return nil, err
	}
	if h.typ == DragEnd {
		return &DragEndEvent{Header: h, Distance: p.Distance}, nil
	}
	return &DragEvent{
		Header:    h,
		LatLng:    p.latLng(),
		OldLatLng: geo.NewLatLng(p.OldLat, p.OldLng),
	}, nil
}

func decodePopup(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[layerFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &PopupEvent{Header: h, PopupID: p.PopupID}, nil
}

func decodeTooltip(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[layerFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &TooltipEvent{Header: h, TooltipID: p.TooltipID}, nil
}

func decodeLocation(h Header, raw json.RawMessage) (Event, error) {
	if h.typ == LocationError {
		p, err := readPayload[errorFields](h, raw)
		if err != nil {
			return nil, err
		}
		return &ErrorEvent{Header: h, Code: p.Code, Message: p.Message}, nil
	}
	p, err := readPayload[locationFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &LocationEvent{
		Header: h,
		LatLng: p.latLng(),
		Bounds: geo.Bounds{
			SouthWest: geo.NewLatLng(p.South, p.West),
			NorthEast: geo.NewLatLng(p.North, p.East),
		},
		Accuracy:         p.Accuracy,
		Altitude:         p.Altitude,
		AltitudeAccuracy: p.AltitudeAccuracy,
		Heading:          p.Heading,
		Speed:            p.Speed,
		Timestamp:        p.Timestamp,
	}, nil
}

func decodeMap(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[mapFields](h, raw)
	if err != nil {
		return nil, err
	}
	switch h.typ {
	case Resize:
		return &ResizeEvent{
			Header:  h,
			OldSize: geo.Point{X: p.OldWidth, Y: p.OldHeight},
			NewSize: geo.Point{X: p.NewWidth, Y: p.NewHeight},
		}, nil
	case ZoomAnim:
		return &ZoomAnimEvent{
			Header:   h,
			Center:   p.latLng(),
			Zoom:     p.Zoom,
			NoUpdate: p.NoUpdate,
		}, nil
	default:
		return &MapEvent{Header: h}, nil
	}
}

func decodeKeyboard(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[keyboardFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &KeyboardEvent{
		Header: h,
		Key:    p.Key,
		Code:   p.Code,
		Alt:    p.AltKey,
		Ctrl:   p.CtrlKey,
		Shift:  p.ShiftKey,
		Meta:   p.MetaKey,
	}, nil
}

func decodeLayer(h Header, raw json.RawMessage) (Event, error) {
	p, err := readPayload[layerFields](h, raw)
	if err != nil {
		return nil, err
	}
	return &LayerEvent{Header: h, LayerID: p.LayerID, Name: p.Name}, nil
}

// DecodePlugin is the decoder used for families registered without one.
func DecodePlugin(h Header, raw json.RawMessage) (Event, error) {
	fields, err := readPayload[map[string]any](h, raw)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return &PluginEvent{Header: h, Payload: fields}, nil
}
