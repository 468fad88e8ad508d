package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/logging"
)

type fakeTarget string

func (f fakeTarget) ID() string { return string(f) }
func (fakeTarget) Kind() string { return "Fake" }

type recordingForwarder struct {
	calls []string
}

func (r *recordingForwarder) Subscribe(name string) { r.calls = append(r.calls, "on:"+name) }
func (r *recordingForwarder) Unsubscribe(name string) { r.calls = append(r.calls, "off:"+name) }
func (r *recordingForwarder) UnsubscribeAll() { r.calls = append(r.calls, "clear") }

func click(target events.Target) *events.MouseEvent {
	return &events.MouseEvent{Header: events.NewHeader(target, events.Click)}
}

func TestOnDeduplicatesListener(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	calls := 0
	l := events.Handle(func(*events.MouseEvent) { calls++ })

	assert.True(t, bus.On(events.Click, l))
	assert.False(t, bus.On(events.Click, l))

	assert.Equal(t, 1, bus.Fire(click(fakeTarget("m1"))))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.Count(events.Click))
}

func TestDistinctHandlesAreDistinctListeners(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	calls := 0
	fn := func(events.Event) { calls++ }

	bus.On(events.Click, events.Listen(fn))
	bus.On(events.Click, events.Listen(fn))
	bus.Fire(click(fakeTarget("m1")))
	assert.Equal(t, 2, calls)
}

func TestFireWithoutListeners(t *testing.T) {
	a := events.NewBus(fakeTarget("a"), nil)
	b := events.NewBus(fakeTarget("b"), nil)
	b.On(events.Click, events.Listen(func(events.Event) {}))

	assert.NotPanics(t, func() {
		assert.Zero(t, a.Fire(click(fakeTarget("a"))))
	})
	assert.Empty(t, a.ActiveEventNames())
	assert.Equal(t, []string{"click"}, b.ActiveEventNames())
}

func TestFireDispatchesOnlyMatchingVariant(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	var clicks, dbl int
	bus.On(events.Click, events.Handle(func(*events.MouseEvent) { clicks++ }))
	bus.On(events.DblClick, events.Handle(func(*events.MouseEvent) { dbl++ }))

	bus.Fire(click(fakeTarget("m1")))
	assert.Equal(t, 1, clicks)
	assert.Zero(t, dbl)
}

func TestListenerPanicIsIsolated(t *testing.T) {
	logger := logging.NewTestLogger(t)
	bus := events.NewBus(fakeTarget("m1"), logger.Logger)

	reached := 0
	bus.On(events.Click, events.Listen(func(events.Event) { panic("boom") }))
	bus.On(events.Click, events.Listen(func(events.Event) { reached++ }))
	bus.On(events.Click, events.Listen(func(events.Event) { reached++ }))

	var delivered int
	require.NotPanics(t, func() {
		delivered = bus.Fire(click(fakeTarget("m1")))
	})
	assert.Equal(t, 2, reached)
	assert.Equal(t, 2, delivered)
	logger.AssertContains(t, "Event listener panicked")
}

func TestListenerAddedDuringFireWaitsForNextEvent(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	late := 0
	lateListener := events.Listen(func(events.Event) { late++ })
	bus.On(events.Click, events.Listen(func(events.Event) {
		bus.On(events.Click, lateListener)
	}))

	bus.Fire(click(fakeTarget("m1")))
	assert.Zero(t, late)
	bus.Fire(click(fakeTarget("m1")))
	assert.Equal(t, 1, late)
}

func TestHandleSkipsOtherPayloads(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	called := false
	bus.On(events.Click, events.Handle(func(*events.KeyboardEvent) { called = true }))

	assert.Zero(t, bus.Fire(click(fakeTarget("m1"))))
	assert.False(t, called)
}

func TestForwarderTracksActiveNames(t *testing.T) {
	bus := events.NewBus(fakeTarget("m1"), nil)
	fwd := &recordingForwarder{}
	bus.SetForwarder(fwd)

	l1 := events.Listen(func(events.Event) {})
	l2 := events.Listen(func(events.Event) {})
	bus.On(events.Click, l1)
	bus.On(events.Click, l2)
	bus.On(events.MoveEnd, l1)
	assert.Equal(t, []string{"click", "moveend"}, bus.ActiveEventNames())

	bus.Off(events.Click, l1)
	assert.True(t, bus.Has(events.Click))
	bus.Off(events.Click, l2)
	assert.False(t, bus.Has(events.Click))

	bus.RemoveEventListener(events.MoveEnd)
	bus.RemoveEventListener(events.MoveEnd)
	assert.Empty(t, bus.ActiveEventNames())

	bus.On(events.Zoom, l1)
	bus.ClearAllEventListeners()
	assert.Empty(t, bus.ActiveEventNames())

	assert.Equal(t, []string{
		"on:click", "on:moveend", "off:click", "off:moveend", "on:zoom", "clear",
	}, fwd.calls)
}
