package plotio

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oappleby/plotsat/internal/model"
)

func writePointShapefile(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "plots.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("PLOT_ID", 16),
		shp.FloatField("PINE", 10, 4),
		shp.FloatField("SPRUCE", 10, 4),
	}
	w.SetFields(fields)

	points := []shp.Point{
		{X: 25.5, Y: 62.25},
		{X: 26.0, Y: 62.5},
	}
	attrs := []struct {
		id           string
		pine, spruce float64
	}{
		{id: "p1", pine: 0.75, spruce: 0.25},
		{id: "p2", pine: 0.4, spruce: 0.6},
	}

	for n := range points {
		w.Write(&points[n])
		require.NoError(t, w.WriteAttribute(n, 0, attrs[n].id))
		require.NoError(t, w.WriteAttribute(n, 1, attrs[n].pine))
		require.NoError(t, w.WriteAttribute(n, 2, attrs[n].spruce))
	}
	require.NoError(t, w.Close())

	return path
}

func TestReadPlots_Shapefile(t *testing.T) {
	t.Parallel()

	path := writePointShapefile(t, t.TempDir())

	table, err := ReadPlots(path, proportionSchema())
	require.NoError(t, err)

	// Header synthesized with schema names, species from the DBF.
	assert.Equal(t, []string{"plot_id", "x", "y", "PINE", "SPRUCE"}, table.Header)
	require.Len(t, table.Plots, 2)

	p1 := table.Plots[0]
	assert.Equal(t, "p1", p1.ID)
	assert.InDelta(t, 25.5, p1.X, 1e-9)
	assert.InDelta(t, 62.25, p1.Y, 1e-9)
	assert.InDelta(t, 0.75, p1.Composition["PINE"], 1e-9)
	assert.Equal(t, "PINE", p1.DominantSpecies())

	assert.Equal(t, "SPRUCE", table.Plots[1].DominantSpecies())
}

func TestReadPlots_ShapefileMissingIDField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "plots.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.FloatField("PINE", 10, 4)})
	w.Write(&shp.Point{X: 1, Y: 2})
	require.NoError(t, w.WriteAttribute(0, 0, 1.0))
	require.NoError(t, w.Close())

	_, err = ReadPlots(path, proportionSchema())
	var invErr *model.InvalidInputError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "plot_id", invErr.Field)
}
