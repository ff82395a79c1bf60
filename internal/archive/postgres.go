package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/signbridge/internal/session"
)

// ddlSessionArchive creates the snapshot table. Caption and sign logs are
// stored as JSONB documents rather than normalized rows; they are only ever
// read back whole.
const ddlSessionArchive = `
CREATE TABLE IF NOT EXISTS session_archive (
    id           BIGSERIAL    PRIMARY KEY,
    session_id   TEXT         NOT NULL,
    started_at   TIMESTAMPTZ  NOT NULL,
    exported_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    language     TEXT         NOT NULL,
    topic        TEXT         NOT NULL DEFAULT '',
    caption_log  JSONB        NOT NULL,
    sign_log     JSONB        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_archive_session_id
    ON session_archive (session_id);

CREATE INDEX IF NOT EXISTS idx_session_archive_exported_at
    ON session_archive (exported_at);
`

// PostgresArchiver is the PostgreSQL-backed [Archiver] implementation. It
// holds a single [pgxpool.Pool] and is safe for concurrent use.
type PostgresArchiver struct {
	pool *pgxpool.Pool
}

var _ Archiver = (*PostgresArchiver)(nil)

// NewPostgresArchiver establishes a connection pool to the database at dsn
// and runs [Migrate] so the snapshot table exists.
func NewPostgresArchiver(ctx context.Context, dsn string) (*PostgresArchiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}

	return &PostgresArchiver{pool: pool}, nil
}

// Migrate creates or ensures the snapshot table exists. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlSessionArchive); err != nil {
		return fmt.Errorf("archive migrate: %w", err)
	}
	return nil
}

// SaveSnapshot implements [Archiver].
func (a *PostgresArchiver) SaveSnapshot(ctx context.Context, snap session.Snapshot) error {
	captionLog, signLog, err := encodeLogs(snap)
	if err != nil {
		return err
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO session_archive (session_id, started_at, language, topic, caption_log, sign_log)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.SessionID, snap.StartedAt, snap.Language, string(snap.Topic), captionLog, signLog,
	)
	if err != nil {
		return fmt.Errorf("archive: insert snapshot: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable. Used by health checks.
func (a *PostgresArchiver) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (a *PostgresArchiver) Close() {
	a.pool.Close()
}

// encodeLogs marshals both snapshot logs to JSON documents. Nil logs encode
// as empty arrays so the JSONB columns never hold SQL nulls.
func encodeLogs(snap session.Snapshot) (captionLog, signLog []byte, err error) {
	captions := snap.CaptionLog
	if captions == nil {
		captions = []session.CaptionEntry{}
	}
	captionLog, err = json.Marshal(captions)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: encode caption log: %w", err)
	}

	entries := snap.SignLog
	if entries == nil {
		entries = []session.SignLogEntry{}
	}
	signLog, err = json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: encode sign log: %w", err)
	}
	return captionLog, signLog, nil
}
