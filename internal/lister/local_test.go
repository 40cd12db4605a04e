package lister

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
)

func testJob(t *testing.T) *manifest.Job {
	t.Helper()
	job := &manifest.Job{
		FolderPrefix: "Greenbelts_S2",
		Countries:    []string{"Finland", "Spain"},
		Years:        []int{2016},
		TotalPlots:   map[string]int{"Finland": 1100, "Spain": 400},
		ChunkSize:    500,
	}
	require.NoError(t, job.Validate())
	return job
}

func writeChunkFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestLocalList(t *testing.T) {
	job := testJob(t)
	base := t.TempDir()
	writeChunkFiles(t, filepath.Join(base, "Greenbelts_S2_Finland_2016"),
		"plots_0000000000_0000000500_S2_mean.csv",
		"plots_0000000500_0000001000_S2_mean.csv",
		"checkpoint.json",
	)
	// Spain has no partition folder yet.

	chunks, err := NewLocal(job, base).List(context.Background())
	require.NoError(t, err)

	finland := model.Partition{Country: "Finland", Year: 2016}
	assert.Len(t, chunks, 2)
	assert.Contains(t, chunks, model.ChunkID{Partition: finland, Start: 0, End: 500})
	assert.Contains(t, chunks, model.ChunkID{Partition: finland, Start: 500, End: 1000})
}

func TestLocalList_EmptyPartitionFolder(t *testing.T) {
	job := testJob(t)
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Greenbelts_S2_Spain_2016"), 0755))

	chunks, err := NewLocal(job, base).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLocalList_SubdirectoriesIgnored(t *testing.T) {
	job := testJob(t)
	base := t.TempDir()
	dir := filepath.Join(base, "Greenbelts_S2_Finland_2016")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plots_0000000000_0000000500_S2_mean.csv"), 0755))

	chunks, err := NewLocal(job, base).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLocalList_MissingBaseDir(t *testing.T) {
	job := testJob(t)

	chunks, err := NewLocal(job, filepath.Join(t.TempDir(), "nope")).List(context.Background())
	require.Error(t, err)
	assert.Nil(t, chunks)

	var srcErr *model.SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "local", srcErr.Source)
}

func TestLocalList_ContextCanceled(t *testing.T) {
	job := testJob(t)
	base := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(job, base).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
