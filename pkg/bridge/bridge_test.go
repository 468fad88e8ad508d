package bridge_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

type node string

func (n node) ID() string { return string(n) }

type marker struct{ id string }

func (m marker) Ref() bridge.Ref { return bridge.Ref{ID: m.id, Kind: "Marker"} }

func sequentialIDs() bridge.Option {
	var n atomic.Int64
	return bridge.WithIDGenerator(func() string {
		return "call-" + strconv.FormatInt(n.Add(1), 10)
	})
}

func newBridge(t *testing.T, opts ...bridge.Option) (*bridge.Bridge, *bridge.Recorder) {
	t.Helper()
	rec := bridge.NewRecorder()
	b := bridge.New(append([]bridge.Option{sequentialIDs()}, opts...)...)
	b.SetSender(rec)
	return b, rec
}

func await[T any](t *testing.T, f *bridge.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func TestExecuteSendsInvoke(t *testing.T) {
	b, rec := newBridge(t)

	require.NoError(t, b.Execute(node("map-1"), "setZoom", 5, map[string]bool{"animate": true}))

	msg := rec.Last()
	require.NotNil(t, msg)
	assert.Equal(t, bridge.KindInvoke, msg.Kind)
	assert.Equal(t, "map-1", msg.TargetID)
	assert.Equal(t, "setZoom", msg.Operation)
	assert.Empty(t, msg.ID)
	require.Len(t, msg.Args, 2)
	assert.JSONEq(t, `5`, string(msg.Args[0]))
	assert.JSONEq(t, `{"animate":true}`, string(msg.Args[1]))
}

func TestExecuteEncodesReferences(t *testing.T) {
	b, rec := newBridge(t)

	require.NoError(t, b.Execute(node("group-1"), "addLayer", marker{id: "m1"}))
	assert.JSONEq(t, `{"$ref":{"id":"m1","kind":"Marker"}}`, string(rec.Last().Args[0]))
}

func TestExecuteWithoutRemote(t *testing.T) {
	b := bridge.New()

	done := make(chan error, 1)
	go func() { done <- b.Execute(node("map-1"), "setZoom", 3) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Execute blocked without a remote counterpart")
	}
	assert.Zero(t, b.Pending())
}

func TestExecuteEncodeError(t *testing.T) {
	b, rec := newBridge(t)

	err := b.Execute(node("map-1"), "setZoom", 1, make(chan int))
	require.Error(t, err)
	var ee *errors.EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Index)
	assert.Equal(t, "setZoom", ee.Operation)
	assert.Nil(t, rec.Last())
}

func TestExecuteLogsSendFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b, rec := newBridge(t, bridge.WithLogger(logger.Logger))
	rec.FailWith(errors.New("socket closed"))

	assert.NoError(t, b.Execute(node("map-1"), "setZoom", 1))
	logger.AssertContains(t, "Failed to send command")
}

func TestCallCompletesWithMatchingResult(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	call := rec.Last()
	require.NotNil(t, call)
	assert.Equal(t, bridge.KindCall, call.Kind)
	assert.Equal(t, "call-1", call.ID)
	assert.Equal(t, 1, b.Pending())

	res, err := bridge.ResultFor(call, 7.5)
	require.NoError(t, err)
	b.HandleResult(res)

	zoom, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, 7.5, zoom)
	assert.Zero(t, b.Pending())
}

func TestCallIgnoresUnmatchedResult(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b, _ := newBridge(t, bridge.WithLogger(logger.Logger))

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	b.HandleResult(&bridge.Message{Kind: bridge.KindResult, ID: "someone-else", Result: json.RawMessage(`3`)})

	_, _, ok := f.Result()
	assert.False(t, ok)
	assert.Equal(t, 1, b.Pending())
	logger.AssertContains(t, "Dropping unmatched call result")
}

func TestCallDuplicateResultIsDropped(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[int](context.Background(), b, node("map-1"), "getZoom")
	call := rec.Last()
	first, _ := bridge.ResultFor(call, 1)
	second, _ := bridge.ResultFor(call, 2)
	b.HandleResult(first)
	b.HandleResult(second)

	v, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCallTimeout(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b, rec := newBridge(t, bridge.WithCallTimeout(20*time.Millisecond), bridge.WithLogger(logger.Logger))

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	_, err := await(t, f)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.Zero(t, b.Pending())
	logger.AssertContains(t, "Remote call timed out")

	late, _ := bridge.ResultFor(rec.Last(), 4)
	b.HandleResult(late)
	logger.AssertContains(t, "Dropping unmatched call result")
}

func TestCallWithoutTimeoutStaysPending(t *testing.T) {
	b, _ := newBridge(t, bridge.WithCallTimeout(0))

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	time.Sleep(30 * time.Millisecond)
	_, _, ok := f.Result()
	assert.False(t, ok)
	assert.Equal(t, 1, b.Pending())
}

func TestCallRemoteError(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	b.HandleResult(bridge.ErrorFor(rec.Last(), "map not ready"))

	_, err := await(t, f)
	require.Error(t, err)
	assert.True(t, errors.IsRemote(err))
	assert.Contains(t, err.Error(), "map not ready")
}

func TestCallDecodeError(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	res, _ := bridge.ResultFor(rec.Last(), "not a number")
	b.HandleResult(res)

	_, err := await(t, f)
	var de *errors.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestCallNotConnected(t *testing.T) {
	b := bridge.New()

	_, err := await(t, bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom"))
	assert.True(t, errors.IsNotConnected(err))
}

func TestCallEncodeError(t *testing.T) {
	b, rec := newBridge(t)

	_, err := await(t, bridge.Call[bool](context.Background(), b, node("map-1"), "hasLayer", func() {}))
	assert.True(t, errors.IsValidationError(err))
	assert.Nil(t, rec.Last())
	assert.Zero(t, b.Pending())
}

func TestFutureCancel(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	f.Cancel()

	_, err := await(t, f)
	assert.True(t, errors.IsCanceled(err))
	assert.Zero(t, b.Pending())

	late, _ := bridge.ResultFor(rec.Last(), 1)
	assert.NotPanics(t, func() { b.HandleResult(late) })
}

func TestCallContextCancel(t *testing.T) {
	b, _ := newBridge(t)
	ctx, cancel := context.WithCancel(context.Background())

	f := bridge.Call[float64](ctx, b, node("map-1"), "getZoom")
	cancel()

	_, err := await(t, f)
	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitContextLeavesCallPending(t *testing.T) {
	b, rec := newBridge(t)

	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, b.Pending())

	res, err := bridge.ResultFor(rec.Last(), 7)
	require.NoError(t, err)
	b.HandleResult(res)

	zoom, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, 7.0, zoom)
}

func TestDetachFailsPendingCalls(t *testing.T) {
	b, _ := newBridge(t)

	f1 := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom")
	f2 := bridge.Call[string](context.Background(), b, node("map-1"), "getCenter")
	b.SetSender(nil)

	_, err := await(t, f1)
	assert.True(t, errors.IsNotConnected(err))
	_, err = await(t, f2)
	assert.True(t, errors.IsNotConnected(err))
	assert.False(t, b.Connected())
}

func TestCloseRejectsCalls(t *testing.T) {
	b, _ := newBridge(t)
	b.Close()

	_, err := await(t, bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom"))
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestThenRunsOnCompletion(t *testing.T) {
	b, rec := newBridge(t)

	var got float64
	f := bridge.Call[float64](context.Background(), b, node("map-1"), "getZoom").
		Then(func(v float64, err error) { got = v })
	res, _ := bridge.ResultFor(rec.Last(), 9)
	b.HandleResult(res)

	<-f.Done()
	assert.Equal(t, 9.0, got)

	late := 0.0
	f.Then(func(v float64, _ error) { late = v })
	assert.Equal(t, 9.0, late)
}

func TestCompletionRunsOnOwnerLoop(t *testing.T) {
	loop := bridge.NewLoop(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	b, rec := newBridge(t, bridge.WithLoop(loop))
	f := bridge.Call[int](context.Background(), b, node("map-1"), "getZoom")

	release := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-release }))

	res, _ := bridge.ResultFor(rec.Last(), 3)
	b.HandleResult(res)

	_, _, ok := f.Result()
	assert.False(t, ok, "future completes only after the loop is free")

	close(release)
	v, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
