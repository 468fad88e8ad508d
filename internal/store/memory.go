package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gubancs/leafmap/pkg/leaflet"
)

// Memory keeps snapshots in process. Used by the console and tests.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]Record
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]Record), now: time.Now}
}

// Save appends a new version for sessionID.
func (m *Memory) Save(_ context.Context, sessionID string, snap leaflet.Snapshot) (Record, error) {
	if err := validateSessionID(sessionID); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := Record{
		SessionID: sessionID,
		Version:   len(m.sessions[sessionID]) + 1,
		Entities:  snap.Count(),
		SavedAt:   m.now().UTC(),
		Snapshot:  snap,
	}
	m.sessions[sessionID] = append(m.sessions[sessionID], rec)
	return rec, nil
}

// Latest returns the newest version for sessionID.
func (m *Memory) Latest(_ context.Context, sessionID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.sessions[sessionID]
	if len(recs) == 0 {
		return Record{}, notFound(sessionID)
	}
	return recs[len(recs)-1], nil
}

// Version returns a specific version for sessionID.
func (m *Memory) Version(_ context.Context, sessionID string, version int) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.sessions[sessionID]
	if version < 1 || version > len(recs) {
		return Record{}, notFound(sessionID)
	}
	return recs[version-1], nil
}

// List summarizes every session with saved snapshots.
func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.sessions))
	for id, recs := range m.sessions {
		last := recs[len(recs)-1]
		out = append(out, Summary{
			SessionID:     id,
			Versions:      len(recs),
			LatestVersion: last.Version,
			Entities:      last.Entities,
			SavedAt:       last.SavedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// Delete removes all versions of sessionID.
func (m *Memory) Delete(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions[sessionID])
	delete(m.sessions, sessionID)
	return n, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
