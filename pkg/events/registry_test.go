package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/logging"
)

type heatType string

func (t heatType) Name() string { return string(t) }
func (heatType) Family() events.Family { return "heat" }

func TestResolveCoreTaxonomies(t *testing.T) {
	r := events.NewRegistry()
	for _, tx := range events.CoreTaxonomies() {
		for _, typ := range tx.Types {
			got, ok := r.Resolve(typ.Name())
			require.True(t, ok, typ.Name())
			assert.Equal(t, typ, got)
			assert.Equal(t, tx.Family, got.Family())
		}
	}

	_, ok := r.Resolve("never-registered")
	assert.False(t, ok)
}

func TestDefaultRegistry(t *testing.T) {
	typ, ok := events.Resolve("click")
	require.True(t, ok)
	assert.Equal(t, events.Click, typ)
	assert.Contains(t, events.Default().Families(), events.FamilyMouse)
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := events.NewEmptyRegistry()
	tx := events.Taxonomy{
		Family: "heat",
		Types:  []events.Type{heatType("heatstart"), heatType("heatend")},
	}

	require.NoError(t, r.Register(tx))
	require.NoError(t, r.Register(tx))
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Types("heat"), 2)
}

func TestRegisterRejectsCrossFamilyDuplicate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := events.NewRegistry(events.WithRegistryLogger(logger.Logger))

	clash := events.NewCustomType("heat", "click")
	fresh := events.NewCustomType("heat", "heatmapready")
	err := r.Register(events.Taxonomy{
		Family: "heat",
		Types:  []events.Type{clash, fresh},
	})

	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))
	var dup *errors.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "click", dup.Name)
	assert.Equal(t, "mouse", dup.Existing)

	got, ok := r.Resolve("click")
	require.True(t, ok)
	assert.Equal(t, events.Click, got, "first registration wins")

	got, ok = r.Resolve("heatmapready")
	require.True(t, ok)
	assert.Equal(t, fresh, got)

	logger.AssertContains(t, "Duplicate event type name")
}

type taggedType struct {
	name string
	tags []string
}

func (t taggedType) Name() string { return t.name }
func (taggedType) Family() events.Family { return "heat" }

func TestRegisterValidation(t *testing.T) {
	r := events.NewEmptyRegistry()

	tests := []struct {
		name string
		tx   events.Taxonomy
	}{
		{"missing family", events.Taxonomy{Types: []events.Type{heatType("a")}}},
		{"no types", events.Taxonomy{Family: "heat"}},
		{"empty name", events.Taxonomy{Family: "heat", Types: []events.Type{heatType("")}}},
		{"foreign family", events.Taxonomy{Family: "other", Types: []events.Type{heatType("a")}}},
		{"not comparable", events.Taxonomy{Family: "heat", Types: []events.Type{taggedType{name: "a", tags: []string{"x"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.tx)
			assert.True(t, errors.IsValidationError(err))
		})
	}
	assert.Zero(t, r.Len())
}

func TestDecodeUnknownName(t *testing.T) {
	r := events.NewRegistry()
	_, err := r.Decode(fakeTarget("m1"), "wobble", nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestDecodePluginPayload(t *testing.T) {
	r := events.NewEmptyRegistry()
	require.NoError(t, r.Register(events.Taxonomy{
		Family: "heat",
		Types:  []events.Type{heatType("heatstart")},
	}))

	e, err := r.Decode(fakeTarget("h1"), "heatstart", json.RawMessage(`{"radius":25}`))
	require.NoError(t, err)
	pe, ok := e.(*events.PluginEvent)
	require.True(t, ok)
	assert.Equal(t, 25.0, pe.Payload["radius"])
	assert.Equal(t, "h1", pe.Target().ID())
}
