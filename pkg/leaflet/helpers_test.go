package leaflet_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

type harness struct {
	m      *leaflet.Map
	rec    *bridge.Recorder
	logger *logging.TestLogger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.NewTestLogger(t)
	rec := bridge.NewRecorder()
	b := bridge.New(bridge.WithLogger(logger.Logger))
	b.SetSender(rec)
	m := leaflet.NewMap(leaflet.DefaultMapOptions(),
		leaflet.WithID("map"),
		leaflet.WithBridge(b),
		leaflet.WithRegistry(events.NewRegistry()),
		leaflet.WithLogger(logger.Logger),
	)
	return &harness{m: m, rec: rec, logger: logger}
}

func refOf(t *testing.T, raw json.RawMessage) bridge.Ref {
	t.Helper()
	var env struct {
		Ref bridge.Ref `json:"$ref"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Ref
}

func eventMessage(target, name, payload string) *bridge.Message {
	return &bridge.Message{
		Kind:          bridge.KindEvent,
		TargetID:      target,
		EventTypeName: name,
		Payload:       json.RawMessage(payload),
	}
}
