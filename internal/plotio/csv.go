package plotio

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/oappleby/plotsat/internal/model"
)

// readCSV reads a CSV plot table into a header row and raw data rows.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "plotio: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &model.InvalidInputError{Reason: "csv parse: " + err.Error()}
	}

	if len(records) == 0 {
		return nil, nil, errEmptyTable
	}

	return records[0], records[1:], nil
}
