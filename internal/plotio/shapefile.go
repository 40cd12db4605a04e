package plotio

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/oappleby/plotsat/internal/model"
)

// readShapefile reads a point shapefile: coordinates come from the geometry,
// the plot id and species weights from the DBF attribute fields. The header
// is synthesized in schema order so labeled output gets the configured
// column names. DBF field names match the schema case-insensitively.
func readShapefile(path string, schema Schema) ([]string, [][]string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "plotio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	idIdx := -1
	type speciesField struct {
		name string
		idx  int
	}
	var species []speciesField
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		switch strings.ToLower(name) {
		case strings.ToLower(schema.IDColumn):
			idIdx = i
		case strings.ToLower(schema.XColumn), strings.ToLower(schema.YColumn):
			// Coordinate mirrors in the DBF; geometry is authoritative.
		default:
			species = append(species, speciesField{name: name, idx: i})
		}
	}
	if idIdx < 0 {
		return nil, nil, &model.InvalidInputError{
			Field:  schema.IDColumn,
			Reason: "attribute field missing from shapefile",
		}
	}

	header := make([]string, 0, 3+len(species))
	header = append(header, schema.IDColumn, schema.XColumn, schema.YColumn)
	for _, sf := range species {
		header = append(header, sf.name)
	}

	var rows [][]string
	n := 0
	for reader.Next() {
		n++
		_, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		record := id
		if record == "" {
			record = fmt.Sprintf("record %d", n)
		}

		var x, y float64
		switch pt := shape.(type) {
		case *shp.Point:
			x, y = pt.X, pt.Y
		case *shp.PointZ:
			x, y = pt.X, pt.Y
		case *shp.PointM:
			x, y = pt.X, pt.Y
		default:
			return nil, nil, &model.InvalidInputError{
				Record: record,
				Reason: fmt.Sprintf("geometry %T is not a point", shape),
			}
		}

		row := make([]string, 0, len(header))
		row = append(row, id, formatCoord(x), formatCoord(y))
		for _, sf := range species {
			row = append(row, strings.TrimSpace(strings.TrimRight(reader.Attribute(sf.idx), "\x00")))
		}
		rows = append(rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "plotio: read shapefile")
	}

	return header, rows, nil
}
