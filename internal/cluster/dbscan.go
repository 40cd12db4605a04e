// Package cluster groups geolocated survey plots into dominant-forest-type
// clusters using density-based (DBSCAN) clustering. Results are deterministic
// for a given input: seeds are scanned in input order, expansion is
// breadth-first, and cluster ids are assigned in discovery order from 0.
package cluster

import (
	"fmt"
	"math"

	geom "github.com/twpayne/go-geom"

	"github.com/oappleby/plotsat/internal/model"
)

// Noise is the label assigned to plots that belong to no cluster.
const Noise = -1

// unclassified marks plots not yet visited during expansion.
const unclassified = -2

// Params controls a clustering run.
type Params struct {
	// Epsilon is the neighborhood radius, in the units of the plot
	// coordinates. Must be positive.
	Epsilon float64

	// MinPoints is the minimum neighborhood size (the plot itself
	// included) for a plot to seed or extend a cluster. Must be >= 1.
	MinPoints int
}

// Result holds the outcome of a clustering run. Labels is parallel to the
// input plot slice: Labels[i] is the cluster id of plot i, or Noise.
type Result struct {
	Labels   []int
	Clusters []model.ClusterSummary
}

// DominantFor returns the dominant species label for a cluster id, or ""
// for Noise and unknown ids.
func (r *Result) DominantFor(label int) string {
	if label < 0 || label >= len(r.Clusters) {
		return ""
	}
	return r.Clusters[label].DominantSpecies
}

// NoiseCount returns the number of plots labeled Noise.
func (r *Result) NoiseCount() int {
	n := 0
	for _, l := range r.Labels {
		if l == Noise {
			n++
		}
	}
	return n
}

// Run clusters the plots. The input slice is not modified and its order is
// preserved; every plot receives exactly one label. A plot is a core point
// when at least MinPoints plots (itself included) lie within Epsilon of it,
// distances being Euclidean over the plot x/y coordinates.
//
// Invalid parameters or non-finite coordinates abort the run with an
// InvalidInputError before any clustering work; there is no partial result.
func Run(plots []model.Plot, params Params) (*Result, error) {
	if math.IsNaN(params.Epsilon) || params.Epsilon <= 0 {
		return nil, &model.InvalidInputError{Field: "epsilon", Reason: "must be positive"}
	}
	if params.MinPoints < 1 {
		return nil, &model.InvalidInputError{Field: "min_points", Reason: "must be >= 1"}
	}

	coords := make([]geom.Coord, len(plots))
	for i, p := range plots {
		if !finite(p.X) {
			return nil, &model.InvalidInputError{Record: p.ID, Field: "x", Reason: "coordinate is not finite"}
		}
		if !finite(p.Y) {
			return nil, &model.InvalidInputError{Record: p.ID, Field: "y", Reason: "coordinate is not finite"}
		}
		coords[i] = p.Coord()
	}

	labels := make([]int, len(plots))
	for i := range labels {
		labels[i] = unclassified
	}

	idx := newGrid(coords, params.Epsilon)
	next := 0

	for i := range plots {
		if labels[i] != unclassified {
			continue
		}
		nbrs := idx.neighbors(i, params.Epsilon)
		if len(nbrs) < params.MinPoints {
			labels[i] = Noise
			continue
		}

		id := next
		next++
		labels[i] = id

		// Breadth-first expansion over the seed's neighborhood.
		queue := append([]int(nil), nbrs...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == Noise {
				// Border plot reached by density: joins the cluster.
				labels[j] = id
				continue
			}
			if labels[j] != unclassified {
				continue
			}
			labels[j] = id
			jn := idx.neighbors(j, params.Epsilon)
			if len(jn) >= params.MinPoints {
				queue = append(queue, jn...)
			}
		}
	}

	return &Result{
		Labels:   labels,
		Clusters: summarize(plots, labels, next),
	}, nil
}

// summarize builds per-cluster summaries in cluster id order.
func summarize(plots []model.Plot, labels []int, clusters int) []model.ClusterSummary {
	members := make([][]int, clusters)
	for i, l := range labels {
		if l >= 0 {
			members[l] = append(members[l], i)
		}
	}

	out := make([]model.ClusterSummary, clusters)
	for id, idxs := range members {
		bounds := geom.NewBounds(geom.XY)
		for _, i := range idxs {
			bounds.Extend(geom.NewPointFlat(geom.XY, []float64{plots[i].X, plots[i].Y}))
		}
		out[id] = model.ClusterSummary{
			ClusterID:       id,
			Plots:           len(idxs),
			DominantSpecies: dominantSpecies(plots, idxs),
			MinX:            bounds.Min(0),
			MinY:            bounds.Min(1),
			MaxX:            bounds.Max(0),
			MaxY:            bounds.Max(1),
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks flag-level parameters before any input is read, so the
// CLI can reject bad thresholds as configuration problems.
func Validate(epsilon float64, minPoints int) error {
	if math.IsNaN(epsilon) || epsilon <= 0 {
		return &model.ConfigurationError{Param: "epsilon", Reason: fmt.Sprintf("must be positive, got %v", epsilon)}
	}
	if minPoints < 1 {
		return &model.ConfigurationError{Param: "min_points", Reason: fmt.Sprintf("must be >= 1, got %d", minPoints)}
	}
	return nil
}
