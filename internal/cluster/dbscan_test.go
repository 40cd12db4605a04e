package cluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oappleby/plotsat/internal/model"
)

func plot(id string, x, y float64, comp map[string]float64) model.Plot {
	return model.Plot{ID: id, X: x, Y: y, Composition: comp}
}

// twoGroups is two dense stands far apart plus one isolated plot.
func twoGroups() []model.Plot {
	return []model.Plot{
		plot("a1", 0, 0, map[string]float64{"pine": 0.8, "birch": 0.2}),
		plot("a2", 1, 0, map[string]float64{"pine": 0.7, "spruce": 0.3}),
		plot("a3", 0, 1, map[string]float64{"pine": 0.9, "birch": 0.1}),
		plot("b1", 50, 50, map[string]float64{"spruce": 0.6, "pine": 0.4}),
		plot("b2", 51, 50, map[string]float64{"spruce": 0.7, "birch": 0.3}),
		plot("b3", 50, 51, map[string]float64{"spruce": 0.8, "pine": 0.2}),
		plot("lone", 200, 200, map[string]float64{"aspen": 1.0}),
	}
}

func TestRun_TwoClustersAndNoise(t *testing.T) {
	t.Parallel()

	plots := twoGroups()
	res, err := Run(plots, Params{Epsilon: 1.5, MinPoints: 3})
	require.NoError(t, err)

	require.Len(t, res.Labels, len(plots))
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, Noise}, res.Labels)
	assert.Equal(t, 1, res.NoiseCount())

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, 3, res.Clusters[0].Plots)
	assert.Equal(t, "pine", res.Clusters[0].DominantSpecies)
	assert.Equal(t, 3, res.Clusters[1].Plots)
	assert.Equal(t, "spruce", res.Clusters[1].DominantSpecies)

	// Bounding box of the first stand.
	assert.InDelta(t, 0, res.Clusters[0].MinX, 1e-9)
	assert.InDelta(t, 0, res.Clusters[0].MinY, 1e-9)
	assert.InDelta(t, 1, res.Clusters[0].MaxX, 1e-9)
	assert.InDelta(t, 1, res.Clusters[0].MaxY, 1e-9)

	assert.Equal(t, "pine", res.DominantFor(0))
	assert.Equal(t, "spruce", res.DominantFor(1))
	assert.Equal(t, "", res.DominantFor(Noise))
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	plots := twoGroups()
	first, err := Run(plots, Params{Epsilon: 1.5, MinPoints: 3})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Run(plots, Params{Epsilon: 1.5, MinPoints: 3})
		require.NoError(t, err)
		assert.Equal(t, first.Labels, again.Labels)
		assert.Equal(t, first.Clusters, again.Clusters)
	}
}

func TestRun_MinPointsOneLargeEpsilon(t *testing.T) {
	t.Parallel()

	// Every plot is a core point and the radius spans the whole extent:
	// one cluster, zero noise.
	plots := twoGroups()
	res, err := Run(plots, Params{Epsilon: 1000, MinPoints: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, res.NoiseCount())
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, len(plots), res.Clusters[0].Plots)
	for _, l := range res.Labels {
		assert.Equal(t, 0, l)
	}
}

func TestRun_AllNoiseWhenSparse(t *testing.T) {
	t.Parallel()

	plots := twoGroups()
	res, err := Run(plots, Params{Epsilon: 0.1, MinPoints: 2})
	require.NoError(t, err)

	assert.Equal(t, len(plots), res.NoiseCount())
	assert.Empty(t, res.Clusters)
}

func TestRun_BorderPlotJoinsCluster(t *testing.T) {
	t.Parallel()

	// A 3-plot line with eps=1: only the middle plot is core. The ends are
	// border plots and must join its cluster even though the first one is
	// scanned (and provisionally marked noise) before the core is found.
	plots := []model.Plot{
		plot("left", 0, 0, nil),
		plot("mid", 1, 0, nil),
		plot("right", 2, 0, nil),
	}
	res, err := Run(plots, Params{Epsilon: 1, MinPoints: 3})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0}, res.Labels)
	assert.Equal(t, 0, res.NoiseCount())
}

func TestRun_EmptyInput(t *testing.T) {
	t.Parallel()

	res, err := Run(nil, Params{Epsilon: 1, MinPoints: 3})
	require.NoError(t, err)
	assert.Empty(t, res.Labels)
	assert.Empty(t, res.Clusters)
}

func TestRun_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params Params
		field  string
	}{
		{name: "zero epsilon", params: Params{Epsilon: 0, MinPoints: 3}, field: "epsilon"},
		{name: "negative epsilon", params: Params{Epsilon: -2, MinPoints: 3}, field: "epsilon"},
		{name: "nan epsilon", params: Params{Epsilon: math.NaN(), MinPoints: 3}, field: "epsilon"},
		{name: "zero min points", params: Params{Epsilon: 1, MinPoints: 0}, field: "min_points"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Run(twoGroups(), tt.params)
			var invErr *model.InvalidInputError
			require.ErrorAs(t, err, &invErr)
			assert.Equal(t, tt.field, invErr.Field)
		})
	}
}

func TestRun_NonFiniteCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		x, y  float64
		field string
	}{
		{name: "nan x", x: math.NaN(), y: 1, field: "x"},
		{name: "inf y", x: 1, y: math.Inf(1), field: "y"},
		{name: "neg inf x", x: math.Inf(-1), y: 1, field: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plots := append(twoGroups(), plot("bad", tt.x, tt.y, nil))
			res, err := Run(plots, Params{Epsilon: 1.5, MinPoints: 3})
			assert.Nil(t, res)

			var invErr *model.InvalidInputError
			require.ErrorAs(t, err, &invErr)
			assert.Equal(t, "bad", invErr.Record)
			assert.Equal(t, tt.field, invErr.Field)
		})
	}
}

func TestRun_InputNotMutated(t *testing.T) {
	t.Parallel()

	plots := twoGroups()
	before := make([]model.Plot, len(plots))
	copy(before, plots)

	_, err := Run(plots, Params{Epsilon: 1.5, MinPoints: 3})
	require.NoError(t, err)
	assert.Equal(t, before, plots)
}

// Growing epsilon can only merge clusters, never split them: any pair
// sharing a cluster at the smaller radius still shares one at the larger.
func TestRun_EpsilonMonotonic(t *testing.T) {
	t.Parallel()

	plots := []model.Plot{
		plot("p0", 0, 0, nil),
		plot("p1", 1, 0, nil),
		plot("p2", 2, 0, nil),
		plot("p3", 6, 0, nil),
		plot("p4", 7, 0, nil),
		plot("p5", 8, 0, nil),
		plot("p6", 30, 0, nil),
	}

	small, err := Run(plots, Params{Epsilon: 1.2, MinPoints: 2})
	require.NoError(t, err)
	large, err := Run(plots, Params{Epsilon: 10, MinPoints: 2})
	require.NoError(t, err)

	assert.LessOrEqual(t, large.NoiseCount(), small.NoiseCount())

	for i := range plots {
		for j := i + 1; j < len(plots); j++ {
			if small.Labels[i] >= 0 && small.Labels[i] == small.Labels[j] {
				assert.Equal(t, large.Labels[i], large.Labels[j],
					"plots %d and %d co-clustered at eps=1.2 but split at eps=10", i, j)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(1.5, 3))

	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, Validate(0, 3), &cfgErr)
	assert.Equal(t, "epsilon", cfgErr.Param)

	require.ErrorAs(t, Validate(1.5, 0), &cfgErr)
	assert.Equal(t, "min_points", cfgErr.Param)
}
