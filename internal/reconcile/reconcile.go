// Package reconcile compares an export job's expected chunk manifest against
// the chunks actually present at a destination and reports what is missing.
// Reconciliation is read-only: it never writes to the destination, and a
// source that cannot be listed surfaces as an error, never as "all missing".
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/lister"
	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
)

// Progress describes how far one partition's export has come.
type Progress struct {
	Partition model.Partition `json:"partition"`

	// Expected and Present count manifest chunks.
	Expected int `json:"expected_chunks"`
	Present  int `json:"present_chunks"`

	// TotalPlots is the partition's plot row count; CompletedPlots is the
	// highest end marker observed among present chunks, i.e. how far the
	// exporter got before it stopped.
	TotalPlots     int `json:"total_plots"`
	CompletedPlots int `json:"completed_plots"`

	// Gaps counts missing chunks that start below CompletedPlots. Resuming
	// the exporter from CompletedPlots will not fill these.
	Gaps int `json:"gaps"`
}

// Remaining returns the plot rows not yet covered by the export.
func (p Progress) Remaining() int {
	return p.TotalPlots - p.CompletedPlots
}

// Done reports whether the exporter reached the end of the partition.
func (p Progress) Done() bool {
	return p.CompletedPlots >= p.TotalPlots
}

// Report is the outcome of reconciling a job against one destination.
type Report struct {
	Job      string          `json:"job"`
	Source   string          `json:"source"`
	Expected int             `json:"expected_chunks"`
	Present  int             `json:"present_chunks"`
	Missing  []model.ChunkID `json:"missing"`

	Partitions []Progress `json:"partitions"`
}

// Missing returns the expected chunks absent from actual, sorted by country,
// year and start marker. The same inputs always produce the same output.
func Missing(expected []model.ChunkID, actual map[model.ChunkID]struct{}) []model.ChunkID {
	missing := make([]model.ChunkID, 0)
	for _, id := range expected {
		if _, ok := actual[id]; !ok {
			missing = append(missing, id)
		}
	}
	model.SortChunkIDs(missing)
	return missing
}

// Reconcile lists the destination once and builds the report for the job.
// Lister failures (including retry exhaustion) pass through unchanged.
func Reconcile(ctx context.Context, job *manifest.Job, l lister.Lister) (*Report, error) {
	actual, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	report := Build(job, l.Source(), actual)

	zap.L().Info("reconciled export job",
		zap.String("job", report.Job),
		zap.String("source", report.Source),
		zap.Int("expected", report.Expected),
		zap.Int("present", report.Present),
		zap.Int("missing", len(report.Missing)),
	)
	return report, nil
}

// Build assembles a report from an already-listed chunk set.
func Build(job *manifest.Job, source string, actual map[model.ChunkID]struct{}) *Report {
	expected := manifest.Expected(job)
	missing := Missing(expected, actual)

	report := &Report{
		Job:      job.Name,
		Source:   source,
		Expected: len(expected),
		Present:  len(expected) - len(missing),
		Missing:  missing,
	}

	missingByPart := make(map[model.Partition][]model.ChunkID)
	for _, id := range missing {
		missingByPart[id.Partition] = append(missingByPart[id.Partition], id)
	}

	for _, part := range job.Partitions() {
		prog := Progress{
			Partition:  part,
			Expected:   len(job.ExpectedFor(part)),
			TotalPlots: job.TotalPlots[part.Country],
		}
		prog.Present = prog.Expected - len(missingByPart[part])

		// The completion marker is the furthest row any present chunk
		// reaches, whether or not the chunk is in the manifest.
		for id := range actual {
			if id.Partition == part && id.End > prog.CompletedPlots {
				prog.CompletedPlots = id.End
			}
		}

		for _, id := range missingByPart[part] {
			if id.Start < prog.CompletedPlots {
				prog.Gaps++
			}
		}

		report.Partitions = append(report.Partitions, prog)
	}

	return report
}

// Range is a PlotToSat resubmission range for one partition: restart the
// export at Completed and run to Total.
type Range struct {
	Partition model.Partition
	Completed int
	Total     int
}

// Ranges returns resubmission ranges for every unfinished partition, in
// report order. Finished partitions are omitted even if they have interior
// gaps; those need chunk-level repair, not a range restart.
func Ranges(report *Report) []Range {
	var ranges []Range
	for _, prog := range report.Partitions {
		if prog.Done() {
			continue
		}
		ranges = append(ranges, Range{
			Partition: prog.Partition,
			Completed: prog.CompletedPlots,
			Total:     prog.TotalPlots,
		})
	}
	return ranges
}
