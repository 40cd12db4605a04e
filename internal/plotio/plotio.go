// Package plotio reads and writes plot survey tables. Readers accept CSV,
// XLSX and point-shapefile inputs and normalize them into model.Plot records
// plus the raw rows needed to write labeled output without disturbing the
// original values.
package plotio

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/oappleby/plotsat/internal/model"
)

// Schema names the plot table columns and the composition mode.
type Schema struct {
	IDColumn string
	XColumn  string
	YColumn  string

	// Mode is "proportion" (species weights sum to 1 per plot) or "count"
	// (non-negative stem counts).
	Mode string

	// Tolerance bounds the allowed deviation of a proportion sum from 1.0.
	Tolerance float64
}

// Table is a loaded plot table. Rows holds the raw record strings in file
// order; Plots is parallel to Rows.
type Table struct {
	Header []string
	Rows   [][]string
	Plots  []model.Plot
}

// ReadPlots loads a plot table, dispatching on the file extension (.csv,
// .xlsx, .shp). Any malformed record aborts the read with an
// InvalidInputError naming the offending plot; there is no partial result.
func ReadPlots(path string, schema Schema) (*Table, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		header, rows, err = readCSV(path)
	case ".xlsx":
		header, rows, err = readXLSX(path)
	case ".shp":
		header, rows, err = readShapefile(path, schema)
	default:
		return nil, &model.ConfigurationError{
			Param:  "input",
			Reason: fmt.Sprintf("unsupported file extension %q (want .csv, .xlsx or .shp)", filepath.Ext(path)),
		}
	}
	if err != nil {
		return nil, err
	}

	plots, err := buildPlots(header, rows, schema)
	if err != nil {
		return nil, err
	}

	return &Table{Header: header, Rows: rows, Plots: plots}, nil
}

// buildPlots parses and validates raw rows against the schema. Columns other
// than id/x/y are species composition columns; empty cells read as weight 0.
func buildPlots(header []string, rows [][]string, schema Schema) ([]model.Plot, error) {
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.TrimSpace(col)] = i
	}

	for _, col := range []string{schema.IDColumn, schema.XColumn, schema.YColumn} {
		if _, ok := colIdx[col]; !ok {
			return nil, &model.InvalidInputError{
				Field:  col,
				Reason: "column missing from header",
			}
		}
	}

	idIdx := colIdx[schema.IDColumn]
	xIdx := colIdx[schema.XColumn]
	yIdx := colIdx[schema.YColumn]

	type speciesCol struct {
		name string
		idx  int
	}
	var species []speciesCol
	for i, col := range header {
		name := strings.TrimSpace(col)
		if name == schema.IDColumn || name == schema.XColumn || name == schema.YColumn {
			continue
		}
		species = append(species, speciesCol{name: name, idx: i})
	}

	plots := make([]model.Plot, 0, len(rows))
	for n, row := range rows {
		id := getCell(row, idIdx)
		if id == "" {
			return nil, &model.InvalidInputError{
				Record: fmt.Sprintf("row %d", n+2),
				Field:  schema.IDColumn,
				Reason: "missing plot id",
			}
		}

		x, err := parseCoord(id, schema.XColumn, getCell(row, xIdx))
		if err != nil {
			return nil, err
		}
		y, err := parseCoord(id, schema.YColumn, getCell(row, yIdx))
		if err != nil {
			return nil, err
		}

		comp := make(map[string]float64, len(species))
		sum := 0.0
		for _, sc := range species {
			cell := getCell(row, sc.idx)
			if cell == "" {
				continue
			}
			w, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, &model.InvalidInputError{
					Record: id,
					Field:  sc.name,
					Reason: fmt.Sprintf("composition weight %q is not a number", cell),
				}
			}
			if w < 0 {
				return nil, &model.InvalidInputError{
					Record: id,
					Field:  sc.name,
					Reason: fmt.Sprintf("composition weight %v is negative", w),
				}
			}
			comp[sc.name] = w
			sum += w
		}

		switch schema.Mode {
		case "proportion":
			if len(species) > 0 && math.Abs(sum-1.0) > schema.Tolerance {
				return nil, &model.InvalidInputError{
					Record: id,
					Reason: fmt.Sprintf("composition sums to %.4f, want 1.0 ± %v", sum, schema.Tolerance),
				}
			}
		case "count":
			// Counts only need to be non-negative, checked above. A plot
			// with no recorded stems simply has no dominant species.
		default:
			return nil, &model.ConfigurationError{
				Param:  "input.composition_mode",
				Reason: fmt.Sprintf("unknown mode %q", schema.Mode),
			}
		}

		plots = append(plots, model.Plot{ID: id, X: x, Y: y, Composition: comp})
	}

	return plots, nil
}

func parseCoord(id, field, cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, &model.InvalidInputError{
			Record: id,
			Field:  field,
			Reason: fmt.Sprintf("coordinate %q is not a number", cell),
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &model.InvalidInputError{
			Record: id,
			Field:  field,
			Reason: "coordinate is not finite",
		}
	}
	return v, nil
}

// getCell safely retrieves a column value from a raw row.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// formatCoord renders a shapefile coordinate the way it round-trips exactly
// through parseCoord.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var errEmptyTable = eris.New("plotio: table has no header row")
