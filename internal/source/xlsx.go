package source

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/basinlabs/geoframe/internal/frame"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	Name       string
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	XColumn    string
	YColumn    string
	SRID       int
}

// ReadXLSX reads a worksheet with a header row into a frame.
func ReadXLSX(path string, opts XLSXOptions) (*frame.Frame, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	records := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		records = append(records, rowToStrings(row))
	}

	return frameFromTable(opts.Name, header, records, opts.XColumn, opts.YColumn, opts.SRID)
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
