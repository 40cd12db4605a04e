package lister

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
)

// Local lists chunk files from a directory tree on disk, one partition
// folder per country/year under the base directory.
type Local struct {
	job     *manifest.Job
	baseDir string
}

// NewLocal creates a Local lister rooted at baseDir.
func NewLocal(job *manifest.Job, baseDir string) *Local {
	return &Local{job: job, baseDir: baseDir}
}

// Source implements Lister.
func (l *Local) Source() string { return "local" }

// List implements Lister. A partition folder that does not exist yet simply
// contributes no chunks; a missing or unreadable base directory is a
// SourceUnavailableError.
func (l *Local) List(ctx context.Context) (map[model.ChunkID]struct{}, error) {
	if _, err := os.Stat(l.baseDir); err != nil {
		return nil, &model.SourceUnavailableError{
			Source: l.Source(),
			Err:    eris.Wrapf(err, "lister: base dir %s", l.baseDir),
		}
	}

	chunks := make(map[model.ChunkID]struct{})
	for _, part := range l.job.Partitions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(l.baseDir, l.job.FolderName(part))
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			// Partition not exported yet.
			continue
		}
		if err != nil {
			return nil, &model.SourceUnavailableError{
				Source: l.Source(),
				Err:    eris.Wrapf(err, "lister: read %s", dir),
			}
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if id, ok := l.job.ParseChunkFile(part, e.Name()); ok {
				chunks[id] = struct{}{}
			}
		}
	}

	zap.L().Debug("listed local chunks",
		zap.String("base_dir", l.baseDir),
		zap.Int("chunks", len(chunks)),
	)
	return chunks, nil
}
