package events

// Family names one closed taxonomy of event types.
type Family string

// Core families.
const (
	FamilyMouse    Family = "mouse"
	FamilyDrag     Family = "drag"
	FamilyPopup    Family = "popup"
	FamilyTooltip  Family = "tooltip"
	FamilyLocation Family = "location"
	FamilyMap      Family = "map"
	FamilyKeyboard Family = "keyboard"
	FamilyLayer    Family = "layer"
)

// Type is one event-type variant. Implementations must be comparable;
// they are used as map keys by Bus.
type Type interface {
	Name() string
	Family() Family
}

// MouseType enumerates pointer events.
type MouseType string

func (t MouseType) Name() string { return string(t) }
func (MouseType) Family() Family { return FamilyMouse }

const (
	Click       MouseType = "click"
	DblClick    MouseType = "dblclick"
	MouseDown   MouseType = "mousedown"
	MouseUp     MouseType = "mouseup"
	MouseOver   MouseType = "mouseover"
	MouseOut    MouseType = "mouseout"
	MouseMove   MouseType = "mousemove"
	ContextMenu MouseType = "contextmenu"
	PreClick    MouseType = "preclick"
)

// DragType enumerates marker drag events.
type DragType string

func (t DragType) Name() string { return string(t) }
func (DragType) Family() Family { return FamilyDrag }

const (
	DragStart DragType = "dragstart"
	Drag      DragType = "drag"
	DragEnd   DragType = "dragend"
)

// PopupType enumerates popup events.
type PopupType string

func (t PopupType) Name() string { return string(t) }
func (PopupType) Family() Family { return FamilyPopup }

const (
	PopupOpen  PopupType = "popupopen"
	PopupClose PopupType = "popupclose"
)

// TooltipType enumerates tooltip events.
type TooltipType string

func (t TooltipType) Name() string { return string(t) }
func (TooltipType) Family() Family { return FamilyTooltip }

const (
	TooltipOpen  TooltipType = "tooltipopen"
	TooltipClose TooltipType = "tooltipclose"
)

// LocationType enumerates geolocation events.
type LocationType string

func (t LocationType) Name() string { return string(t) }
func (LocationType) Family() Family { return FamilyLocation }

const (
	LocationFound LocationType = "locationfound"
	LocationError LocationType = "locationerror"
)

// MapType enumerates map state and lifecycle events.
type MapType string

func (t MapType) Name() string { return string(t) }
func (MapType) Family() Family { return FamilyMap }

const (
	Load             MapType = "load"
	Unload           MapType = "unload"
	ViewReset        MapType = "viewreset"
	Resize           MapType = "resize"
	ZoomStart        MapType = "zoomstart"
	Zoom             MapType = "zoom"
	ZoomEnd          MapType = "zoomend"
	MoveStart        MapType = "movestart"
	Move             MapType = "move"
	MoveEnd          MapType = "moveend"
	ZoomLevelsChange MapType = "zoomlevelschange"
	ZoomAnim         MapType = "zoomanim"
)

// KeyboardType enumerates keyboard events.
type KeyboardType string

func (t KeyboardType) Name() string { return string(t) }
func (KeyboardType) Family() Family { return FamilyKeyboard }

const (
	KeyPress KeyboardType = "keypress"
	KeyDown  KeyboardType = "keydown"
	KeyUp    KeyboardType = "keyup"
)

// LayerType enumerates layer lifecycle and layer-control events.
type LayerType string

func (t LayerType) Name() string { return string(t) }
func (LayerType) Family() Family { return FamilyLayer }

const (
	Add             LayerType = "add"
	Remove          LayerType = "remove"
	LayerAdd        LayerType = "layeradd"
	LayerRemove     LayerType = "layerremove"
	BaseLayerChange LayerType = "baselayerchange"
	OverlayAdd      LayerType = "overlayadd"
	OverlayRemove   LayerType = "overlayremove"
)

// CustomType is a variant declared by a plugin family at runtime.
type CustomType struct {
	name   string
	family Family
}

// NewCustomType declares a plugin event type.
func NewCustomType(family Family, name string) CustomType {
	return CustomType{name: name, family: family}
}

func (t CustomType) Name() string { return t.name }
func (t CustomType) Family() Family { return t.family }
