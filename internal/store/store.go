// Package store persists session snapshots so a map can be inspected,
// or rebuilt, after its browser has gone away.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Record is one saved version of a session's tree.
type Record struct {
	SessionID string           `json:"sessionId" yaml:"sessionId"`
	Version   int              `json:"version" yaml:"version"`
	Entities  int              `json:"entities" yaml:"entities"`
	SavedAt   time.Time        `json:"savedAt" yaml:"savedAt"`
	Snapshot  leaflet.Snapshot `json:"snapshot" yaml:"snapshot"`
}

// Summary describes the saved history of one session.
type Summary struct {
	SessionID     string    `json:"sessionId" yaml:"sessionId"`
	Versions      int       `json:"versions" yaml:"versions"`
	LatestVersion int       `json:"latestVersion" yaml:"latestVersion"`
	Entities      int       `json:"entities" yaml:"entities"`
	SavedAt       time.Time `json:"savedAt" yaml:"savedAt"`
}

// Store saves and loads snapshots.
type Store interface {
	// Save appends a new version for sessionID.
	Save(ctx context.Context, sessionID string, snap leaflet.Snapshot) (Record, error)

	// Latest returns the newest version for sessionID.
	Latest(ctx context.Context, sessionID string) (Record, error)

	// Version returns a specific version for sessionID.
	Version(ctx context.Context, sessionID string, version int) (Record, error)

	// List summarizes every session with saved snapshots, ordered by id.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes all versions of sessionID and reports how many.
	Delete(ctx context.Context, sessionID string) (int, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg Config, logger *zerolog.Logger) (Store, error) {
	logger = logging.OrNop(logger)
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, errors.NewConfigError("store", "unknown driver "+cfg.Driver, nil)
	}
}

func encodeSnapshot(snap leaflet.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.NewEncodeError("snapshot", -1, err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (leaflet.Snapshot, error) {
	var snap leaflet.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, errors.NewDecodeError("snapshot", "leaflet.Snapshot", err)
	}
	return snap, nil
}

func validateSessionID(id string) error {
	if id == "" {
		return errors.NewValidationError("session_id", id, "must not be empty")
	}
	return nil
}

func notFound(sessionID string) error {
	return errors.NewNotFoundError("snapshot", sessionID)
}
