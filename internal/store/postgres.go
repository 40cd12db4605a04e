package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/oappleby/plotsat/internal/db"
	"github.com/oappleby/plotsat/internal/reconcile"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// A one-shot CLI process needs only a small pool.
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job         TEXT NOT NULL,
	source      TEXT NOT NULL,
	expected    INTEGER NOT NULL,
	present     INTEGER NOT NULL,
	missing     INTEGER NOT NULL,
	missing_ids JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_job ON snapshots(job);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, report *reconcile.Report) (*Snapshot, error) {
	snap := snapshotFromReport(uuid.New().String(), time.Now().UTC(), report)

	idsJSON, err := json.Marshal(snap.MissingIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal missing ids")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, job, source, expected, present, missing, missing_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snap.ID, snap.Job, snap.Source, snap.Expected, snap.Present, snap.Missing,
		idsJSON, snap.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert snapshot")
	}
	return snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]Snapshot, error) {
	query := `SELECT id, job, source, expected, present, missing, missing_ids, created_at
	          FROM snapshots WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Job != "" {
		query += fmt.Sprintf(` AND job = $%d`, argIdx)
		args = append(args, filter.Job)
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var idsJSON []byte
		if err := rows.Scan(&snap.ID, &snap.Job, &snap.Source, &snap.Expected,
			&snap.Present, &snap.Missing, &idsJSON, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		if err := json.Unmarshal(idsJSON, &snap.MissingIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal missing ids")
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}
