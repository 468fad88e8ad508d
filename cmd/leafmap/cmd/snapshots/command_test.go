package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	_, err := st.Save(ctx, "demo", leaflet.Snapshot{ID: "demo", Kind: "map"})
	require.NoError(t, err)
	_, err = st.Save(ctx, "demo", leaflet.Snapshot{
		ID:       "demo",
		Kind:     "map",
		Children: []leaflet.Snapshot{{ID: "k1", Kind: "marker"}},
	})
	require.NoError(t, err)
	return st
}

func run(t *testing.T, app application.Application, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mockApp(st store.Store, format string) *application.Mock {
	return &application.Mock{
		StoreFunc:        func(context.Context) (store.Store, error) { return st, nil },
		OutputFormatFunc: func() string { return format },
	}
}

func TestList(t *testing.T) {
	out, err := run(t, mockApp(seeded(t), "json"), "list")
	require.NoError(t, err)

	var got []store.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "demo", got[0].SessionID)
	assert.Equal(t, 2, got[0].Versions)
}

func TestListEmpty(t *testing.T) {
	out, err := run(t, mockApp(store.NewMemory(), "json"), "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestShowLatest(t *testing.T) {
	out, err := run(t, mockApp(seeded(t), "json"), "show", "demo")
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, 2, rec.Snapshot.Count())
}

func TestShowVersion(t *testing.T) {
	out, err := run(t, mockApp(seeded(t), "json"), "show", "demo", "--version", "1")
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 1, rec.Version)
	assert.Empty(t, rec.Snapshot.Children)
}

func TestShowTable(t *testing.T) {
	out, err := run(t, mockApp(seeded(t), "table"), "show", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "k1")
	assert.Contains(t, out, "marker")
}

func TestShowMissing(t *testing.T) {
	_, err := run(t, mockApp(seeded(t), "json"), "show", "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestNoStoreConfigured(t *testing.T) {
	_, err := run(t, &application.Mock{}, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot store configured")
}
