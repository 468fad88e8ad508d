package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

func sampleSnapshot(id string, markers int) leaflet.Snapshot {
	snap := leaflet.Snapshot{ID: id, Kind: "Map", Events: []string{"click"}}
	for i := 0; i < markers; i++ {
		snap.Children = append(snap.Children, leaflet.Snapshot{
			ID:   id + "-m" + string(rune('a'+i)),
			Kind: "Marker",
		})
	}
	return snap
}

// runStoreSuite exercises the behavior every backend shares.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("latest of unknown session", func(t *testing.T) {
		_, err := s.Latest(ctx, "nobody")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := s.Save(ctx, "", sampleSnapshot("x", 0))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("versions increase", func(t *testing.T) {
		r1, err := s.Save(ctx, "s1", sampleSnapshot("s1", 1))
		require.NoError(t, err)
		r2, err := s.Save(ctx, "s1", sampleSnapshot("s1", 3))
		require.NoError(t, err)

		assert.Equal(t, 1, r1.Version)
		assert.Equal(t, 2, r2.Version)
		assert.Equal(t, 4, r2.Entities)

		latest, err := s.Latest(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)
		assert.Equal(t, sampleSnapshot("s1", 3), latest.Snapshot)
		assert.False(t, latest.SavedAt.IsZero())

		first, err := s.Version(ctx, "s1", 1)
		require.NoError(t, err)
		assert.Len(t, first.Snapshot.Children, 1)

		_, err = s.Version(ctx, "s1", 9)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("list summarizes sessions", func(t *testing.T) {
		_, err := s.Save(ctx, "s0", sampleSnapshot("s0", 0))
		require.NoError(t, err)

		sums, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, sums, 2)
		assert.Equal(t, "s0", sums[0].SessionID)
		assert.Equal(t, 1, sums[0].Versions)
		assert.Equal(t, "s1", sums[1].SessionID)
		assert.Equal(t, 2, sums[1].Versions)
		assert.Equal(t, 2, sums[1].LatestVersion)
		assert.Equal(t, 4, sums[1].Entities)
	})

	t.Run("delete", func(t *testing.T) {
		n, err := s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = s.Latest(ctx, "s1")
		assert.True(t, errors.IsNotFound(err))

		n, err = s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("concurrent saves get distinct versions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "busy", sampleSnapshot("busy", 1))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		latest, err := s.Latest(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, 8, latest.Version)
	})

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	runStoreSuite(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "snapshots.db")
	s, err := OpenSQLite(context.Background(), path, logging.Nop())
	require.NoError(t, err)
	defer s.Close()
	runStoreSuite(t, s)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := OpenSQLite(ctx, path, logging.Nop())
	require.NoError(t, err)
	_, err = s.Save(ctx, "s1", sampleSnapshot("s1", 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, logging.Nop())
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Entities)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("LEAFMAP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEAFMAP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, url, logging.Nop())
	require.NoError(t, err)
	defer s.Close()
	for _, id := range []string{"s0", "s1", "busy"} {
		_, err := s.Delete(ctx, id)
		require.NoError(t, err)
	}
	runStoreSuite(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: DriverMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(ctx, Config{Driver: "mongo"}, nil)
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = Open(ctx, Config{Driver: DriverSQLite}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverPostgres}, nil)
	assert.Error(t, err)
}
