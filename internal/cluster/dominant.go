package cluster

import (
	"sort"

	"github.com/oappleby/plotsat/internal/model"
)

// dominantSpecies returns the species with the greatest summed positive
// composition weight over the member plots. Ties resolve to the
// lexicographically smallest species name so cluster labels are
// reproducible run to run.
func dominantSpecies(plots []model.Plot, members []int) string {
	totals := make(map[string]float64)
	for _, i := range members {
		for sp, w := range plots[i].Composition {
			totals[sp] += w
		}
	}

	names := make([]string, 0, len(totals))
	for sp := range totals {
		names = append(names, sp)
	}
	sort.Strings(names)

	best := ""
	bestWeight := 0.0
	for _, sp := range names {
		if totals[sp] > 0 && (best == "" || totals[sp] > bestWeight) {
			best = sp
			bestWeight = totals[sp]
		}
	}
	return best
}
