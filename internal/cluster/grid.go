package cluster

import (
	"math"
	"sort"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// grid is a uniform spatial hash over the plot coordinates with cell size
// equal to the query radius, so a neighborhood query only has to scan the
// 3x3 block of cells around a point instead of every plot.
type grid struct {
	cell   float64
	coords []geom.Coord
	cells  map[cellKey][]int
}

type cellKey struct {
	cx, cy int
}

func newGrid(coords []geom.Coord, cell float64) *grid {
	g := &grid{
		cell:   cell,
		coords: coords,
		cells:  make(map[cellKey][]int),
	}
	for i, c := range coords {
		k := g.keyFor(c)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) keyFor(c geom.Coord) cellKey {
	return cellKey{
		cx: int(math.Floor(c.X() / g.cell)),
		cy: int(math.Floor(c.Y() / g.cell)),
	}
}

// neighbors returns the indices of all plots within eps of plot i, the
// plot itself included. The boundary is inclusive: a plot exactly eps away
// is a neighbor. Results are sorted ascending so expansion order matches
// input order.
func (g *grid) neighbors(i int, eps float64) []int {
	center := g.coords[i]
	k := g.keyFor(center)

	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, j := range g.cells[cellKey{cx: k.cx + dx, cy: k.cy + dy}] {
				if xy.Distance(center, g.coords[j]) <= eps {
					out = append(out, j)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
