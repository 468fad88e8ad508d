package leaflet_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

func TestClickOnNestedMarker(t *testing.T) {
	h := newHarness(t)
	g := leaflet.NewLayerGroup()
	p := leaflet.NewMarker(geo.NewLatLng(10, 20), leaflet.MarkerOptions{}, leaflet.WithID("m1"))
	require.NoError(t, p.AddTo(g))
	require.NoError(t, g.AddTo(h.m))

	var clicks []*events.MouseEvent
	p.OnClick(func(e *events.MouseEvent) { clicks = append(clicks, e) })

	found, ok := h.m.FindLayer("m1")
	require.True(t, ok)
	assert.Same(t, p, found)

	e, err := h.m.Dispatch(eventMessage("m1", "click",
		`{"lat":10,"lng":20,"layerPointX":1,"layerPointY":2,"containerPointX":3,"containerPointY":4}`))
	require.NoError(t, err)

	require.Len(t, clicks, 1)
	assert.Same(t, e, clicks[0])
	assert.Equal(t, geo.NewLatLng(10, 20), clicks[0].LatLng)
	assert.Equal(t, geo.Point{X: 1, Y: 2}, clicks[0].LayerPoint)
	assert.Equal(t, geo.Point{X: 3, Y: 4}, clicks[0].ContainerPoint)
	assert.Same(t, p, clicks[0].Target())
}

func TestDispatchOnlyToMatchingVariant(t *testing.T) {
	h := newHarness(t)
	p := leaflet.NewMarker(geo.NewLatLng(0, 0), leaflet.MarkerOptions{}, leaflet.WithID("m1"))
	require.NoError(t, p.AddTo(h.m))

	var clicks, dbl int
	p.OnClick(func(*events.MouseEvent) { clicks++ })
	p.OnDblClick(func(*events.MouseEvent) { dbl++ })

	_, err := h.m.Dispatch(eventMessage("m1", "click", `{"lat":1,"lng":2}`))
	require.NoError(t, err)
	assert.Equal(t, 1, clicks)
	assert.Zero(t, dbl)
}

func TestDispatchFallsBackToMap(t *testing.T) {
	h := newHarness(t)
	var onMap int
	h.m.OnClick(func(*events.MouseEvent) { onMap++ })

	e, err := h.m.Dispatch(eventMessage("ghost", "click", `{}`))
	require.NoError(t, err)
	assert.Same(t, h.m, e.Target())
	assert.Equal(t, 1, onMap)
	h.logger.AssertContains(t, "Event target not in tree, dispatching on map")
}

func TestDispatchDropsUnknownEvent(t *testing.T) {
	h := newHarness(t)

	e, err := h.m.Dispatch(eventMessage("map", "heatmapready", `{}`))
	assert.Nil(t, e)
	assert.True(t, errors.IsNotFound(err))
	h.logger.AssertContains(t, "Dropping event of unknown type")
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.Dispatch(eventMessage("map", "click", `{"lat":"x"}`))
	assert.True(t, errors.IsValidationError(err))
	h.logger.AssertContains(t, "Dropping event with malformed payload")
}

func TestDispatchSurvivesPanickingListener(t *testing.T) {
	h := newHarness(t)
	var after int
	h.m.On(events.MoveEnd, events.Listen(func(events.Event) { panic("listener bug") }))
	h.m.On(events.MoveEnd, events.Listen(func(events.Event) { after++ }))

	require.NotPanics(t, func() {
		_, err := h.m.Dispatch(eventMessage("map", "moveend", `{}`))
		require.NoError(t, err)
	})
	assert.Equal(t, 1, after)
	h.logger.AssertContains(t, "Event listener panicked")
}

func TestDispatchToControl(t *testing.T) {
	h := newHarness(t)
	lc := leaflet.NewLayersControl(leaflet.LayersControlOptions{}, leaflet.WithID("layers"))
	h.m.AddControl(lc)

	var names []string
	lc.OnBaseLayerChange(func(e *events.LayerEvent) { names = append(names, e.Name) })

	_, err := h.m.Dispatch(eventMessage("layers", "baselayerchange", `{"layerId":"t1","name":"Satellite"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Satellite"}, names)
}

func TestSubscriptionsAreForwarded(t *testing.T) {
	h := newHarness(t)
	p := leaflet.NewMarker(geo.NewLatLng(0, 0), leaflet.MarkerOptions{}, leaflet.WithID("m1"))

	l := p.OnClick(func(*events.MouseEvent) {})
	assert.Empty(t, h.rec.Messages(), "detached entities do not talk to the browser")

	require.NoError(t, p.AddTo(h.m))
	ref := refOf(t, h.rec.Last().Args[0])
	spec, err := json.Marshal(ref.Spec)
	require.NoError(t, err)
	assert.Contains(t, string(spec), `"events":["click"]`)

	h.rec.Reset()
	p.On(events.Click, l)
	p.OnDragEnd(func(*events.DragEndEvent) {})
	p.RemoveEventListener(events.Click)
	p.ClearAllEventListeners()

	assert.Equal(t, []string{"subscribe", "unsubscribe", "unsubscribeAll"}, h.rec.Operations())
	assert.Empty(t, p.Events().ActiveEventNames())
}

func TestLiveSetters(t *testing.T) {
	h := newHarness(t)
	p := leaflet.NewMarker(geo.NewLatLng(0, 0), leaflet.MarkerOptions{}, leaflet.WithID("m1"))

	p.SetLatLng(geo.NewLatLng(1, 1))
	assert.Empty(t, h.rec.Messages())

	require.NoError(t, p.AddTo(h.m))
	h.rec.Reset()
	p.SetLatLng(geo.NewLatLng(2, 3))

	msg := h.rec.Last()
	require.NotNil(t, msg)
	assert.Equal(t, "m1", msg.TargetID)
	assert.Equal(t, "setLatLng", msg.Operation)
	assert.JSONEq(t, `{"lat":2,"lng":3}`, string(msg.Args[0]))
	assert.Equal(t, geo.NewLatLng(2, 3), p.LatLng())
}

func TestMapView(t *testing.T) {
	h := newHarness(t)

	h.m.SetView(geo.NewLatLng(47.5, 19.04), 12, leaflet.ViewOptions{})
	h.m.ZoomIn(1)
	h.m.Locate(leaflet.LocateOptions{SetView: true})

	assert.Equal(t, geo.NewLatLng(47.5, 19.04), h.m.Center())
	assert.Equal(t, 13.0, h.m.Zoom())
	assert.Equal(t, []string{"setView", "zoomIn", "locate"}, h.rec.Operations())
}

func TestMapCalls(t *testing.T) {
	h := newHarness(t)

	f := h.m.GetCenter(context.Background())
	call := h.rec.Last()
	require.Equal(t, bridge.KindCall, call.Kind)
	assert.Equal(t, "getCenter", call.Operation)

	res, err := bridge.ResultFor(call, geo.NewLatLng(1, 2))
	require.NoError(t, err)
	h.m.Bridge().HandleResult(res)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	center, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, geo.NewLatLng(1, 2), center)
}

func TestCallOnDetachedEntity(t *testing.T) {
	p := leaflet.NewPopup("hello", leaflet.PopupOptions{})

	_, err, ok := p.IsOpen(context.Background()).Result()
	require.True(t, ok)
	assert.ErrorIs(t, err, errors.ErrNotAttached)
}

func TestControls(t *testing.T) {
	h := newHarness(t)
	zoom := leaflet.NewZoomControl(leaflet.ZoomControlOptions{}, leaflet.WithID("zoom"))

	h.m.AddControl(zoom)
	h.m.AddControl(zoom)
	assert.Len(t, h.m.Controls(), 1)
	assert.Same(t, h.m, zoom.Owner())
	assert.Equal(t, leaflet.TopLeft, zoom.Position())

	found, ok := h.m.Lookup("zoom")
	require.True(t, ok)
	assert.Same(t, zoom, found)
	_, ok = h.m.FindLayer("zoom")
	assert.False(t, ok, "controls are not layers")

	zoom.SetPosition(leaflet.BottomRight)
	require.NoError(t, zoom.Remove())
	assert.Empty(t, h.m.Controls())
	assert.Nil(t, zoom.Owner())
	assert.Equal(t, []string{"addControl", "setPosition", "removeControl"}, h.rec.Operations())
}

func TestOpenAndClosePopupOnMap(t *testing.T) {
	h := newHarness(t)
	p := leaflet.NewPopup("hello", leaflet.PopupOptions{}, leaflet.WithID("p1"))

	require.NoError(t, h.m.OpenPopup(p, geo.NewLatLng(1, 1)))
	found, ok := h.m.FindLayer("p1")
	require.True(t, ok)
	assert.Same(t, p, found)

	h.m.ClosePopup(p)
	_, ok = h.m.FindLayer("p1")
	assert.False(t, ok)
	assert.Equal(t, []string{"openPopup", "closePopup"}, h.rec.Operations())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	g := leaflet.NewFeatureGroup(leaflet.WithID("g"))
	p := leaflet.NewMarker(geo.NewLatLng(1, 2), leaflet.MarkerOptions{}, leaflet.WithID("m1"))
	p.BindTooltipContent("tip")
	require.NoError(t, p.AddTo(g))
	require.NoError(t, g.AddTo(h.m))
	h.m.AddControl(leaflet.NewScaleControl(leaflet.ScaleControlOptions{Metric: true}))

	snap := h.m.Snapshot()
	assert.Equal(t, "Map", snap.Kind)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "FeatureGroup", snap.Children[0].Kind)
	require.Len(t, snap.Children[0].Children, 1)
	assert.NotNil(t, snap.Children[0].Children[0].Tooltip)
	require.Len(t, snap.Controls, 1)
	assert.Equal(t, 5, snap.Count())
	assert.Equal(t, 1, snap.Kinds()["Marker"])

	found, ok := snap.Find("m1")
	require.True(t, ok)
	assert.Equal(t, "Marker", found.Kind)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "parent")
}
