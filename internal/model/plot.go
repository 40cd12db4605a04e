package model

import (
	"sort"

	geom "github.com/twpayne/go-geom"
)

// Plot is a single geolocated forest survey plot with per-species
// composition weights. X/Y carry whatever planar coordinates the source
// file provides; distances computed over them are Euclidean, so inputs
// spanning large extents should be projected before clustering.
type Plot struct {
	ID          string             `json:"id"`
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Composition map[string]float64 `json:"composition,omitempty"`
}

// Coord returns the plot location as a go-geom coordinate.
func (p Plot) Coord() geom.Coord {
	return geom.Coord{p.X, p.Y}
}

// DominantSpecies returns the species with the greatest positive composition
// weight. Ties resolve to the lexicographically smallest species name so
// repeated runs over the same data always produce the same label. Returns ""
// when the plot carries no positive weight.
func (p Plot) DominantSpecies() string {
	best := ""
	bestWeight := 0.0
	for _, sp := range sortedSpecies(p.Composition) {
		w := p.Composition[sp]
		if w > 0 && (best == "" || w > bestWeight) {
			best = sp
			bestWeight = w
		}
	}
	return best
}

// Species returns the plot's species names in lexicographic order.
func (p Plot) Species() []string {
	return sortedSpecies(p.Composition)
}

func sortedSpecies(comp map[string]float64) []string {
	names := make([]string, 0, len(comp))
	for sp := range comp {
		names = append(names, sp)
	}
	sort.Strings(names)
	return names
}

// ClusterSummary describes one cluster in a labeled result set. The
// bounding box covers the member plot coordinates.
type ClusterSummary struct {
	ClusterID       int     `json:"cluster_id"`
	Plots           int     `json:"plots"`
	DominantSpecies string  `json:"dominant_species"`
	MinX            float64 `json:"min_x"`
	MinY            float64 `json:"min_y"`
	MaxX            float64 `json:"max_x"`
	MaxY            float64 `json:"max_y"`
}
