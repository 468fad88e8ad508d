package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	sess, err := leafmap.New(
		leafmap.WithID("console"),
		leafmap.WithLogger(logging.Nop()),
		leafmap.WithRegistry(events.NewRegistry()),
		leafmap.WithMapOptions(leaflet.MapOptions{Center: geo.NewLatLng(47.5, 19.04), Zoom: 12}),
	)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	var out bytes.Buffer
	c, err := New(context.Background(), sess, &out, logging.Nop())
	require.NoError(t, err)
	return c, &out
}

func exec(t *testing.T, c *Console, line string) {
	t.Helper()
	require.NoError(t, c.Exec(context.Background(), line))
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"tree", []string{"tree"}},
		{"  view 1 2   3 ", []string{"view", "1", "2", "3"}},
		{`marker 1 2 k1 "Hello there"`, []string{"marker", "1", "2", "k1", "Hello there"}},
		{`fire k1 click ""`, []string{"fire", "k1", "click", ""}},
		{`fire k1 click {"lat":1,"lng":2}`, []string{"fire", "k1", "click", `{"lat":1,"lng":2}`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArgs(tt.in))
		})
	}
}

func TestAttachSendsCreate(t *testing.T) {
	c, _ := newConsole(t)
	msgs := c.Recorder().Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, bridge.KindCreate, msgs[0].Kind)
}

func TestMarkerAndRemove(t *testing.T) {
	c, out := newConsole(t)

	exec(t, c, `marker 47.5 19.05 k1 "Parliament"`)
	assert.Contains(t, out.String(), "added marker k1")
	assert.Contains(t, c.Recorder().Operations(), "addLayer")

	err := c.Exec(context.Background(), "marker 47.5 19.05 k1")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	out.Reset()
	exec(t, c, "tree")
	assert.Contains(t, out.String(), "k1")
	assert.Contains(t, out.String(), "popup")

	exec(t, c, "remove k1")
	assert.Contains(t, c.Recorder().Operations(), "removeLayer")

	err = c.Exec(context.Background(), "remove k1")
	assert.True(t, errors.IsNotFound(err))
}

func TestViewAndCalls(t *testing.T) {
	c, out := newConsole(t)

	exec(t, c, "zoom")
	assert.Contains(t, out.String(), "zoom 12")

	exec(t, c, "view 51.5 -0.12 9")
	assert.Contains(t, c.Recorder().Operations(), "setView")

	out.Reset()
	exec(t, c, "zoom")
	assert.Contains(t, out.String(), "zoom 9")

	out.Reset()
	exec(t, c, "center")
	assert.Contains(t, out.String(), "51.5")
}

func TestUnsupportedCallFailsRemotely(t *testing.T) {
	c, _ := newConsole(t)

	var fut *bridge.Future[geo.Bounds]
	require.NoError(t, c.sess.Do(context.Background(), func(m *leaflet.Map) {
		fut = m.GetBounds(context.Background())
	}))
	_, err := fut.Await(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRemote(err))
}

func TestFire(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "marker 47.5 19.05 k1")

	out.Reset()
	exec(t, c, `fire k1 click {"lat":47.5,"lng":19.05}`)
	assert.Contains(t, out.String(), "event click on Marker k1")

	out.Reset()
	exec(t, c, "fire k1 gesture")
	assert.Contains(t, out.String(), "dropped gesture for k1")

	err := c.Exec(context.Background(), "fire k1 click {nope")
	assert.True(t, errors.IsValidationError(err))
	assert.EqualValues(t, 1, c.sess.Info().Dispatched)
	assert.EqualValues(t, 1, c.sess.Info().Dropped)
}

func TestLoad(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "load ../../../../internal/mapdef/testdata/london.yaml")
	assert.Contains(t, out.String(), "5 layers, 2 controls")

	out.Reset()
	exec(t, c, "snapshot json")
	assert.Contains(t, out.String(), `"tower"`)
}

func TestSentAndClear(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "view 1 2 3")

	out.Reset()
	exec(t, c, "sent 1")
	assert.Contains(t, out.String(), "setView")

	exec(t, c, "clear")
	assert.Empty(t, c.Recorder().Messages())
}

func TestUsageAndUnknown(t *testing.T) {
	c, out := newConsole(t)

	assert.True(t, errors.IsValidationError(c.Exec(context.Background(), "view 1 2")))
	assert.True(t, errors.IsValidationError(c.Exec(context.Background(), "view a b c")))
	assert.Error(t, c.Exec(context.Background(), "teleport"))
	assert.ErrorIs(t, c.Exec(context.Background(), "quit"), ErrQuit)

	exec(t, c, "help")
	assert.Contains(t, out.String(), "marker <lat> <lng>")
	exec(t, c, "info")
	assert.Contains(t, out.String(), "console")
}
