package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/basinlabs/geoframe/internal/frame"
)

// WriteCSV writes the frame's attribute columns plus a trailing geometry
// column in WKT, matching how geodata tables print. Rows without a shape
// get an empty geometry cell.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)

	header := append(f.ColumnNames(), "geometry")
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	cols := f.Columns()
	for i := 0; i < f.NumRows(); i++ {
		record := make([]string, 0, len(cols)+1)
		for _, c := range cols {
			record = append(record, formatValue(c.Values[i]))
		}

		geomCell := ""
		if g := f.Geometry(i); g != nil {
			encoded, err := wkt.Marshal(g)
			if err != nil {
				return eris.Wrapf(err, "export: encode WKT for row %d", i)
			}
			geomCell = encoded
		}
		record = append(record, geomCell)

		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", i)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
