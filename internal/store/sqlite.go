package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/oappleby/plotsat/internal/reconcile"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultSQLitePath returns the history database location under the user's
// home directory, creating the parent directory if needed.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "sqlite: resolve home dir")
	}
	dir := filepath.Join(home, ".plotsat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", eris.Wrapf(err, "sqlite: create %s", dir)
	}
	return filepath.Join(dir, "history.db"), nil
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	source      TEXT NOT NULL,
	expected    INTEGER NOT NULL,
	present     INTEGER NOT NULL,
	missing     INTEGER NOT NULL,
	missing_ids TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_job ON snapshots(job);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, report *reconcile.Report) (*Snapshot, error) {
	snap := snapshotFromReport(uuid.New().String(), time.Now().UTC(), report)

	idsJSON, err := json.Marshal(snap.MissingIDs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal missing ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, job, source, expected, present, missing, missing_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Job, snap.Source, snap.Expected, snap.Present, snap.Missing,
		string(idsJSON), snap.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert snapshot")
	}
	return snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]Snapshot, error) {
	query := `SELECT id, job, source, expected, present, missing, missing_ids, created_at
	          FROM snapshots WHERE 1=1`
	var args []any

	if filter.Job != "" {
		query += ` AND job = ?`
		args = append(args, filter.Job)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var idsJSON string
		if err := rows.Scan(&snap.ID, &snap.Job, &snap.Source, &snap.Expected,
			&snap.Present, &snap.Missing, &idsJSON, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		if err := json.Unmarshal([]byte(idsJSON), &snap.MissingIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal missing ids")
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}
