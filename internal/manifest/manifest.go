package manifest

import (
	"fmt"
	"strconv"

	"github.com/oappleby/plotsat/internal/model"
)

// Partitions returns every country/year partition the job covers, sorted by
// country and then year.
func (j *Job) Partitions() []model.Partition {
	parts := make([]model.Partition, 0, len(j.Countries)*len(j.Years))
	for _, c := range j.Countries {
		for _, y := range j.Years {
			parts = append(parts, model.Partition{Country: c, Year: y})
		}
	}
	model.SortPartitions(parts)
	return parts
}

// FolderName returns the destination folder a partition's chunks live in.
func (j *Job) FolderName(part model.Partition) string {
	return fmt.Sprintf("%s_%s_%d", j.FolderPrefix, part.Country, part.Year)
}

// ExpectedFor enumerates the chunks one partition should contain: half-open
// [start, end) ranges of chunk_size plot rows, the last one truncated to the
// country's total.
func (j *Job) ExpectedFor(part model.Partition) []model.ChunkID {
	total := j.TotalPlots[part.Country]
	chunks := make([]model.ChunkID, 0, (total+j.ChunkSize-1)/j.ChunkSize)
	for start := 0; start < total; start += j.ChunkSize {
		end := start + j.ChunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, model.ChunkID{Partition: part, Start: start, End: end})
	}
	return chunks
}

// Expected enumerates every chunk the job should produce across all
// partitions, sorted by country, year and start marker. Chunk ids are unique
// by construction: Validate rejects duplicate countries and years, and starts
// within a partition strictly increase.
func Expected(job *Job) []model.ChunkID {
	var chunks []model.ChunkID
	for _, part := range job.Partitions() {
		chunks = append(chunks, job.ExpectedFor(part)...)
	}
	return chunks
}

// ParseChunkFile extracts a chunk id from a file name listed in a partition
// folder. File names that do not match the job's chunk pattern, or that carry
// a malformed range, are not chunks and report ok false.
func (j *Job) ParseChunkFile(part model.Partition, name string) (model.ChunkID, bool) {
	m := j.chunkPattern().FindStringSubmatch(name)
	if m == nil {
		return model.ChunkID{}, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return model.ChunkID{}, false
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return model.ChunkID{}, false
	}
	if start < 0 || end <= start {
		return model.ChunkID{}, false
	}
	return model.ChunkID{Partition: part, Start: start, End: end}, true
}
