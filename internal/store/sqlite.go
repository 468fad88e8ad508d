package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	version    INTEGER NOT NULL,
	entities   INTEGER NOT NULL,
	data       TEXT    NOT NULL,
	saved_at   INTEGER NOT NULL,
	UNIQUE (session_id, version)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots (session_id);
`

// SQLite stores snapshots in a local SQLite file.
type SQLite struct {
	db     *sql.DB
	now    func() time.Time
	logger *zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, logger *zerolog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.NewConfigError("store", "sqlite path is empty", nil)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WrapIO("create", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("connect", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}

	logger.Debug().Str("path", path).Msg("SQLite snapshot store opened")
	return &SQLite{db: db, now: time.Now, logger: logger}, nil
}

// Save appends a new version for sessionID.
func (s *SQLite) Save(ctx context.Context, sessionID string, snap leaflet.Snapshot) (Record, error) {
	if err := validateSessionID(sessionID); err != nil {
		return Record{}, err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return Record{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, errors.WrapResource("save", "snapshot", sessionID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE session_id = ?`, sessionID,
	).Scan(&version); err != nil {
		return Record{}, errors.WrapResource("save", "snapshot", sessionID, err)
	}

	rec := Record{
		SessionID: sessionID,
		Version:   version,
		Entities:  snap.Count(),
		SavedAt:   s.now().UTC().Truncate(time.Millisecond),
		Snapshot:  snap,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, version, entities, data, saved_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Version, rec.Entities, string(data), rec.SavedAt.UnixMilli(),
	); err != nil {
		return Record{}, errors.WrapResource("save", "snapshot", sessionID, err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, errors.WrapResource("save", "snapshot", sessionID, err)
	}
	return rec, nil
}

// Latest returns the newest version for sessionID.
func (s *SQLite) Latest(ctx context.Context, sessionID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, version, entities, data, saved_at FROM snapshots
		 WHERE session_id = ? ORDER BY version DESC LIMIT 1`, sessionID)
	return s.scanRecord(row, sessionID)
}

// Version returns a specific version for sessionID.
func (s *SQLite) Version(ctx context.Context, sessionID string, version int) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, version, entities, data, saved_at FROM snapshots
		 WHERE session_id = ? AND version = ?`, sessionID, version)
	return s.scanRecord(row, sessionID)
}

func (s *SQLite) scanRecord(row *sql.Row, sessionID string) (Record, error) {
	var (
		rec     Record
		data    string
		savedAt int64
	)
	if err := row.Scan(&rec.SessionID, &rec.Version, &rec.Entities, &data, &savedAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, notFound(sessionID)
		}
		return Record{}, errors.WrapResource("load", "snapshot", sessionID, err)
	}
	snap, err := decodeSnapshot([]byte(data))
	if err != nil {
		return Record{}, err
	}
	rec.Snapshot = snap
	rec.SavedAt = time.UnixMilli(savedAt).UTC()
	return rec, nil
}

// List summarizes every session with saved snapshots.
func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, c.versions, s.version, s.entities, s.saved_at
		FROM snapshots s
		JOIN (SELECT session_id, COUNT(*) AS versions, MAX(version) AS latest
		      FROM snapshots GROUP BY session_id) c
		  ON s.session_id = c.session_id AND s.version = c.latest
		ORDER BY s.session_id`)
	if err != nil {
		return nil, errors.WrapResource("list", "snapshot", "", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			savedAt int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Versions, &sum.LatestVersion, &sum.Entities, &savedAt); err != nil {
			return nil, errors.WrapResource("list", "snapshot", "", err)
		}
		sum.SavedAt = time.UnixMilli(savedAt).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes all versions of sessionID.
func (s *SQLite) Delete(ctx context.Context, sessionID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, errors.WrapResource("delete", "snapshot", sessionID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.WrapIO("close", "sqlite", err)
	}
	return nil
}
