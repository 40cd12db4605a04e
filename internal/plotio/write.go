package plotio

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/oappleby/plotsat/internal/cluster"
)

// WriteLabeled writes the table as CSV with exactly two columns appended:
// cluster_id and dominant_species (empty for noise plots). Original cell
// values and row order pass through untouched, so repeated runs over the
// same input produce byte-identical files.
func WriteLabeled(path string, t *Table, res *cluster.Result) error {
	if len(res.Labels) != len(t.Rows) {
		return eris.Errorf("plotio: %d labels for %d rows", len(res.Labels), len(t.Rows))
	}
	for _, col := range t.Header {
		if col == "cluster_id" || col == "dominant_species" {
			return eris.Errorf("plotio: input already has a %s column", col)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "plotio: create output")
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append(append([]string(nil), t.Header...), "cluster_id", "dominant_species")
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "plotio: write header")
	}

	for i, row := range t.Rows {
		label := res.Labels[i]
		out := append(append([]string(nil), row...),
			strconv.Itoa(label),
			res.DominantFor(label),
		)
		if err := w.Write(out); err != nil {
			return eris.Wrap(err, "plotio: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "plotio: flush output")
	}
	return f.Close()
}
