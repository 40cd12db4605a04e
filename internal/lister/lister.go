// Package lister enumerates the chunk files actually present at an export
// destination. Each destination (local directory, FTP server, Google Drive)
// implements the same listing contract so the reconciler never knows which
// one it is talking to.
package lister

import (
	"context"

	"github.com/oappleby/plotsat/internal/model"
)

// Lister reports the set of chunks present at one export destination.
type Lister interface {
	// List returns every chunk id found at the destination. A destination
	// that cannot be reached reports SourceUnavailableError; an unreachable
	// source never comes back as an empty set.
	List(ctx context.Context) (map[model.ChunkID]struct{}, error)

	// Source names the destination for logs and reports.
	Source() string
}
