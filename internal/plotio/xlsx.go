package plotio

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX reads the first sheet of an XLSX workbook into a header row and
// raw data rows. Cells are taken as their displayed string values.
func readXLSX(path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "plotio: open xlsx")
	}

	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("plotio: xlsx has no sheets")
	}
	sheet := f.Sheets[0]

	if len(sheet.Rows) == 0 {
		return nil, nil, errEmptyTable
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}

	return header, rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
