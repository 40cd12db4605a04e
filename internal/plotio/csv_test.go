package plotio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oappleby/plotsat/internal/cluster"
	"github.com/oappleby/plotsat/internal/model"
)

func proportionSchema() Schema {
	return Schema{
		IDColumn:  "plot_id",
		XColumn:   "x",
		YColumn:   "y",
		Mode:      "proportion",
		Tolerance: 0.01,
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadPlots_CSV(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", `plot_id,x,y,pine,spruce,birch
p1,0.0,0.0,0.6,0.4,
p2,1.0,0.5,0.55,0.45,0
p3,10,10,,0.2,0.8
`)

	table, err := ReadPlots(path, proportionSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"plot_id", "x", "y", "pine", "spruce", "birch"}, table.Header)
	require.Len(t, table.Plots, 3)
	require.Len(t, table.Rows, 3)

	// Raw rows survive untouched.
	assert.Equal(t, []string{"p1", "0.0", "0.0", "0.6", "0.4", ""}, table.Rows[0])

	p1 := table.Plots[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, 0.0, p1.X)
	assert.Equal(t, map[string]float64{"pine": 0.6, "spruce": 0.4}, p1.Composition)

	// Explicit zero stays in the composition; empty cells do not.
	p2 := table.Plots[1]
	assert.Equal(t, map[string]float64{"pine": 0.55, "spruce": 0.45, "birch": 0}, p2.Composition)

	p3 := table.Plots[2]
	assert.Equal(t, 10.0, p3.X)
	assert.Equal(t, 10.0, p3.Y)
	assert.Equal(t, "birch", p3.DominantSpecies())
}

func TestReadPlots_CSVCountMode(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", `plot_id,x,y,pine,spruce
p1,0,0,12,3
p2,1,1,0,7
`)

	schema := proportionSchema()
	schema.Mode = "count"

	table, err := ReadPlots(path, schema)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"pine": 12, "spruce": 3}, table.Plots[0].Composition)
	assert.Equal(t, "pine", table.Plots[0].DominantSpecies())
}

func TestReadPlots_CSVCountModeZeroSum(t *testing.T) {
	t.Parallel()

	// A plot with no recorded stems is valid in count mode; it just has no
	// dominant species.
	path := writeTemp(t, "plots.csv", "plot_id,x,y,pine,spruce\np1,0,0,0,0\n")

	schema := proportionSchema()
	schema.Mode = "count"

	table, err := ReadPlots(path, schema)
	require.NoError(t, err)
	assert.Equal(t, "", table.Plots[0].DominantSpecies())
}

func TestReadPlots_InvalidRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		csv    string
		mode   string
		record string
		field  string
	}{
		{
			name:   "missing plot id",
			csv:    "plot_id,x,y,pine\np1,0,0,1.0\n,1,1,1.0\n",
			mode:   "proportion",
			record: "row 3",
			field:  "plot_id",
		},
		{
			name:   "unparsable coordinate",
			csv:    "plot_id,x,y,pine\np1,abc,0,1.0\n",
			mode:   "proportion",
			record: "p1",
			field:  "x",
		},
		{
			name:   "nan coordinate",
			csv:    "plot_id,x,y,pine\np1,0,NaN,1.0\n",
			mode:   "proportion",
			record: "p1",
			field:  "y",
		},
		{
			name:   "infinite coordinate",
			csv:    "plot_id,x,y,pine\np1,+Inf,0,1.0\n",
			mode:   "proportion",
			record: "p1",
			field:  "x",
		},
		{
			name:   "negative weight",
			csv:    "plot_id,x,y,pine,spruce\np1,0,0,1.2,-0.2\n",
			mode:   "proportion",
			record: "p1",
			field:  "spruce",
		},
		{
			name:   "non numeric weight",
			csv:    "plot_id,x,y,pine\np1,0,0,n/a\n",
			mode:   "proportion",
			record: "p1",
			field:  "pine",
		},
		{
			name:   "proportion sum violation",
			csv:    "plot_id,x,y,pine,spruce\np1,0,0,0.5,0.3\n",
			mode:   "proportion",
			record: "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeTemp(t, "plots.csv", tt.csv)
			schema := proportionSchema()
			schema.Mode = tt.mode

			table, err := ReadPlots(path, schema)
			assert.Nil(t, table)

			var invErr *model.InvalidInputError
			require.ErrorAs(t, err, &invErr)
			assert.Equal(t, tt.record, invErr.Record)
			assert.Equal(t, tt.field, invErr.Field)
		})
	}
}

func TestReadPlots_ToleranceBoundary(t *testing.T) {
	t.Parallel()

	// 1.009 is inside the default ±0.01 band, 1.02 is not.
	ok := writeTemp(t, "ok.csv", "plot_id,x,y,pine,spruce\np1,0,0,0.509,0.5\n")
	_, err := ReadPlots(ok, proportionSchema())
	assert.NoError(t, err)

	bad := writeTemp(t, "bad.csv", "plot_id,x,y,pine,spruce\np1,0,0,0.52,0.5\n")
	_, err = ReadPlots(bad, proportionSchema())
	var invErr *model.InvalidInputError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Reason, "composition sums to")
}

func TestReadPlots_MissingColumn(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", "id,lon,lat\np1,0,0\n")

	_, err := ReadPlots(path, proportionSchema())
	var invErr *model.InvalidInputError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "plot_id", invErr.Field)
}

func TestReadPlots_RaggedRow(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", "plot_id,x,y\np1,0,0,extra\n")

	_, err := ReadPlots(path, proportionSchema())
	var invErr *model.InvalidInputError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Reason, "csv parse")
}

func TestReadPlots_HeaderOnly(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", "plot_id,x,y,pine\n")

	table, err := ReadPlots(path, proportionSchema())
	require.NoError(t, err)
	assert.Empty(t, table.Plots)
	assert.Empty(t, table.Rows)
}

func TestReadPlots_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.txt", "plot_id,x,y\n")

	_, err := ReadPlots(path, proportionSchema())
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "input", cfgErr.Param)
}

func TestWriteLabeled(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "plots.csv", `plot_id,x,y,pine,spruce
a1,0,0,0.8,0.2
a2,1,0,0.7,0.3
a3,0,1,0.9,0.1
lone,100,100,0.2,0.8
`)

	table, err := ReadPlots(path, proportionSchema())
	require.NoError(t, err)

	res, err := cluster.Run(table.Plots, cluster.Params{Epsilon: 1.5, MinPoints: 3})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "labeled.csv")
	require.NoError(t, WriteLabeled(out, table, res))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want := `plot_id,x,y,pine,spruce,cluster_id,dominant_species
a1,0,0,0.8,0.2,0,pine
a2,1,0,0.7,0.3,0,pine
a3,0,1,0.9,0.1,0,pine
lone,100,100,0.2,0.8,-1,
`
	assert.Equal(t, want, string(got))

	// Rewriting produces byte-identical output.
	out2 := filepath.Join(t.TempDir(), "labeled2.csv")
	require.NoError(t, WriteLabeled(out2, table, res))
	again, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestWriteLabeled_ColumnCollision(t *testing.T) {
	t.Parallel()

	table := &Table{
		Header: []string{"plot_id", "x", "y", "cluster_id"},
		Rows:   [][]string{{"p1", "0", "0", "7"}},
	}
	res := &cluster.Result{Labels: []int{0}}

	err := WriteLabeled(filepath.Join(t.TempDir(), "out.csv"), table, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has")
}

func TestWriteLabeled_LabelRowMismatch(t *testing.T) {
	t.Parallel()

	table := &Table{
		Header: []string{"plot_id", "x", "y"},
		Rows:   [][]string{{"p1", "0", "0"}, {"p2", "1", "1"}},
	}
	res := &cluster.Result{Labels: []int{0}}

	err := WriteLabeled(filepath.Join(t.TempDir(), "out.csv"), table, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels for")
}
