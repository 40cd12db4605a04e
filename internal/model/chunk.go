package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Partition identifies one export folder: the chunks for a single
// country and acquisition year.
type Partition struct {
	Country string `json:"country"`
	Year    int    `json:"year"`
}

func (p Partition) String() string {
	return fmt.Sprintf("%s_%d", p.Country, p.Year)
}

// Less orders partitions by country, then year.
func (p Partition) Less(o Partition) bool {
	if p.Country != o.Country {
		return p.Country < o.Country
	}
	return p.Year < o.Year
}

// ChunkID identifies one exported chunk within a partition, covering
// plot rows [Start, End).
type ChunkID struct {
	Partition
	Start int `json:"start"`
	End   int `json:"end"`
}

// String renders the canonical chunk id, e.g.
// Finland_2016_0000000000_0000000500.
func (c ChunkID) String() string {
	return fmt.Sprintf("%s_%d_%010d_%010d", c.Country, c.Year, c.Start, c.End)
}

// Plots returns the number of plot rows the chunk covers.
func (c ChunkID) Plots() int {
	return c.End - c.Start
}

// MarshalJSON renders the chunk id as its canonical string.
func (c ChunkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Less orders chunk ids by country, year, then start row.
func (c ChunkID) Less(o ChunkID) bool {
	if c.Partition != o.Partition {
		return c.Partition.Less(o.Partition)
	}
	if c.Start != o.Start {
		return c.Start < o.Start
	}
	return c.End < o.End
}

// SortChunkIDs sorts ids in place into canonical report order.
func SortChunkIDs(ids []ChunkID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// SortPartitions sorts partitions in place by country, then year.
func SortPartitions(parts []Partition) {
	sort.Slice(parts, func(i, j int) bool { return parts[i].Less(parts[j]) })
}
