package lister

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
	"github.com/oappleby/plotsat/internal/resilience"
	"github.com/oappleby/plotsat/pkg/drive"
)

const maxListConcurrency = 4

// Drive lists chunk files from partition folders on Google Drive. With a
// parent folder configured, partition folders are matched among its children;
// otherwise each folder is resolved by name across the whole drive.
type Drive struct {
	job    *manifest.Job
	client drive.Client
	parent string
	retry  resilience.RetryConfig
}

// NewDrive creates a Drive lister on top of a drive.Client. parentFolder is
// the name of the folder holding the partition folders; empty means they are
// looked up drive-wide.
func NewDrive(job *manifest.Job, client drive.Client, parentFolder string, retry resilience.RetryConfig) *Drive {
	retry.OnRetry = resilience.RetryLogger("drive", "list_chunks")
	return &Drive{job: job, client: client, parent: parentFolder, retry: retry}
}

// Source implements Lister.
func (d *Drive) Source() string { return "drive" }

// List implements Lister.
func (d *Drive) List(ctx context.Context) (map[model.ChunkID]struct{}, error) {
	chunks, err := resilience.DoVal(ctx, d.retry, d.listOnce)
	if err != nil {
		return nil, &model.SourceUnavailableError{Source: d.Source(), Err: err}
	}
	return chunks, nil
}

func (d *Drive) listOnce(ctx context.Context) (map[model.ChunkID]struct{}, error) {
	parts := d.job.Partitions()

	folderIDs, err := d.resolveFolders(ctx, parts)
	if err != nil {
		return nil, err
	}

	results := make([]map[model.ChunkID]struct{}, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxListConcurrency)
	for i, part := range parts {
		name := d.job.FolderName(part)
		folderID, ok := folderIDs[name]
		if !ok {
			// Partition not exported yet.
			continue
		}
		g.Go(func() error {
			files, err := d.client.ListFiles(gctx, folderID)
			if err != nil {
				return eris.Wrapf(err, "lister: list folder %s", name)
			}
			found := make(map[model.ChunkID]struct{}, len(files))
			for _, f := range files {
				if id, ok := d.job.ParseChunkFile(part, f.Name); ok {
					found[id] = struct{}{}
				}
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chunks := make(map[model.ChunkID]struct{})
	for _, m := range results {
		for id := range m {
			chunks[id] = struct{}{}
		}
	}

	zap.L().Debug("listed drive chunks",
		zap.Int("partitions", len(parts)),
		zap.Int("chunks", len(chunks)),
	)
	return chunks, nil
}

// resolveFolders maps partition folder names to Drive folder ids. A single
// child listing covers every partition when a parent folder is configured.
func (d *Drive) resolveFolders(ctx context.Context, parts []model.Partition) (map[string]string, error) {
	folderIDs := make(map[string]string, len(parts))

	if d.parent != "" {
		parent, err := d.client.FindFolder(ctx, d.parent, "")
		if err != nil {
			return nil, eris.Wrapf(err, "lister: resolve parent folder %q", d.parent)
		}
		if parent == nil {
			return nil, eris.Errorf("lister: parent folder %q not found", d.parent)
		}
		folders, err := d.client.ListFolders(ctx, parent.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "lister: list parent folder %q", d.parent)
		}
		for _, f := range folders {
			folderIDs[f.Name] = f.ID
		}
		return folderIDs, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxListConcurrency)
	for _, part := range parts {
		name := d.job.FolderName(part)
		g.Go(func() error {
			folder, err := d.client.FindFolder(gctx, name, "")
			if err != nil {
				return eris.Wrapf(err, "lister: find folder %q", name)
			}
			if folder != nil {
				mu.Lock()
				folderIDs[name] = folder.ID
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return folderIDs, nil
}
