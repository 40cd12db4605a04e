// Package store persists reconciliation snapshots so export progress can be
// tracked across runs. Recording is opt-in: reconciliation itself never
// touches the store.
package store

import (
	"context"
	"time"

	"github.com/oappleby/plotsat/internal/config"
	"github.com/oappleby/plotsat/internal/model"
	"github.com/oappleby/plotsat/internal/reconcile"
)

// Snapshot is one recorded reconciliation outcome.
type Snapshot struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Source     string    `json:"source"`
	Expected   int       `json:"expected_chunks"`
	Present    int       `json:"present_chunks"`
	Missing    int       `json:"missing_chunks"`
	MissingIDs []string  `json:"missing_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	Job    string `json:"job,omitempty"`
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for reconciliation history.
type Store interface {
	// SaveSnapshot records a reconciliation report and returns the stored
	// snapshot.
	SaveSnapshot(ctx context.Context, report *reconcile.Report) (*Snapshot, error)

	// ListSnapshots returns snapshots matching the filter, newest first.
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]Snapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store named by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path, err = DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
		}
		s, err = NewSQLite(path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, &model.ConfigurationError{
			Param:  "store.driver",
			Reason: "must be sqlite or postgres",
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// snapshotFromReport builds the snapshot row for a report. Missing ids are
// stored in canonical string form.
func snapshotFromReport(id string, now time.Time, report *reconcile.Report) *Snapshot {
	ids := make([]string, len(report.Missing))
	for i, c := range report.Missing {
		ids[i] = c.String()
	}
	return &Snapshot{
		ID:         id,
		Job:        report.Job,
		Source:     report.Source,
		Expected:   report.Expected,
		Present:    report.Present,
		Missing:    len(report.Missing),
		MissingIDs: ids,
		CreatedAt:  now,
	}
}
