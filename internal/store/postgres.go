package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leafmap_snapshots (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT        NOT NULL,
	version    INTEGER     NOT NULL,
	entities   INTEGER     NOT NULL,
	data       JSONB       NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, version)
)`

// Postgres stores snapshots in a PostgreSQL database through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger *zerolog.Logger
}

// OpenPostgres connects to url and prepares the schema.
func OpenPostgres(ctx context.Context, url string, logger *zerolog.Logger) (*Postgres, error) {
	if url == "" {
		return nil, errors.NewConfigError("store", "database url is empty", nil)
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.NewConfigError("store", "invalid database url", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WrapIO("connect", "postgres", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing postgres schema: %w", err)
	}
	logger.Debug().Msg("Postgres snapshot store connected")
	return &Postgres{pool: pool, now: time.Now, logger: logger}, nil
}

// Save appends a new version for sessionID. Concurrent writers for the
// same session are serialized with an advisory transaction lock.
func (p *Postgres) Save(ctx context.Context, sessionID string, snap leaflet.Snapshot) (Record, error) {
	if err := validateSessionID(sessionID); err != nil {
		return Record{}, err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		SessionID: sessionID,
		Entities:  snap.Count(),
		SavedAt:   p.now().UTC().Truncate(time.Microsecond),
		Snapshot:  snap,
	}
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM leafmap_snapshots WHERE session_id = $1`, sessionID,
		).Scan(&rec.Version); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO leafmap_snapshots (session_id, version, entities, data, saved_at) VALUES ($1, $2, $3, $4, $5)`,
			rec.SessionID, rec.Version, rec.Entities, data, rec.SavedAt)
		return err
	})
	if err != nil {
		return Record{}, errors.WrapResource("save", "snapshot", sessionID, err)
	}
	return rec, nil
}

// Latest returns the newest version for sessionID.
func (p *Postgres) Latest(ctx context.Context, sessionID string) (Record, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT session_id, version, entities, data, saved_at FROM leafmap_snapshots
		 WHERE session_id = $1 ORDER BY version DESC LIMIT 1`, sessionID)
	return p.scanRecord(row, sessionID)
}

// Version returns a specific version for sessionID.
func (p *Postgres) Version(ctx context.Context, sessionID string, version int) (Record, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT session_id, version, entities, data, saved_at FROM leafmap_snapshots
		 WHERE session_id = $1 AND version = $2`, sessionID, version)
	return p.scanRecord(row, sessionID)
}

func (p *Postgres) scanRecord(row pgx.Row, sessionID string) (Record, error) {
	var (
		rec  Record
		data []byte
	)
	if err := row.Scan(&rec.SessionID, &rec.Version, &rec.Entities, &data, &rec.SavedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Record{}, notFound(sessionID)
		}
		return Record{}, errors.WrapResource("load", "snapshot", sessionID, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return Record{}, err
	}
	rec.Snapshot = snap
	rec.SavedAt = rec.SavedAt.UTC()
	return rec, nil
}

// List summarizes every session with saved snapshots.
func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (session_id)
		       session_id,
		       COUNT(*) OVER (PARTITION BY session_id),
		       version, entities, saved_at
		FROM leafmap_snapshots
		ORDER BY session_id, version DESC`)
	if err != nil {
		return nil, errors.WrapResource("list", "snapshot", "", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var sum Summary
		var versions int64
		err := row.Scan(&sum.SessionID, &versions, &sum.LatestVersion, &sum.Entities, &sum.SavedAt)
		sum.Versions = int(versions)
		sum.SavedAt = sum.SavedAt.UTC()
		return sum, err
	})
	if err != nil {
		return nil, errors.WrapResource("list", "snapshot", "", err)
	}
	return out, nil
}

// Delete removes all versions of sessionID.
func (p *Postgres) Delete(ctx context.Context, sessionID string) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM leafmap_snapshots WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, errors.WrapResource("delete", "snapshot", sessionID, err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping checks the pool can reach the server.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
