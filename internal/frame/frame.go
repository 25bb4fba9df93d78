// Package frame provides a column-oriented table with an optional geometry
// column and coordinate reference system, the in-memory shape every source
// reader produces and every export path consumes.
package frame

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
)

// Column is a named, typed slice of values. A nil entry is a null.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Frame is a table of columns with an optional parallel geometry column.
// All columns and the geometry slice share a single row count.
type Frame struct {
	name  string
	cols  []Column
	geoms []geom.T
	srid  int
	rows  int
}

// New creates an empty frame with the given name.
func New(name string) *Frame {
	return &Frame{name: name}
}

// Name returns the frame name.
func (f *Frame) Name() string { return f.name }

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the number of attribute columns (geometry excluded).
func (f *Frame) NumCols() int { return len(f.cols) }

// SRID returns the coordinate reference system identifier, or 0 when the
// frame has no geometry.
func (f *Frame) SRID() int { return f.srid }

// HasGeometry reports whether a geometry column is set.
func (f *Frame) HasGeometry() bool { return f.geoms != nil }

// Columns returns the attribute columns in order.
func (f *Frame) Columns() []Column { return f.cols }

// ColumnNames returns the attribute column names in order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (f *Frame) Column(name string) (*Column, bool) {
	for i := range f.cols {
		if f.cols[i].Name == name {
			return &f.cols[i], true
		}
	}
	return nil, false
}

// AddColumn appends an attribute column. The first column fixes the row
// count; later columns must match it.
func (f *Frame) AddColumn(name string, kind Kind, values []any) error {
	if _, exists := f.Column(name); exists {
		return eris.Errorf("frame: duplicate column %q", name)
	}
	if len(f.cols) == 0 && f.geoms == nil {
		f.rows = len(values)
	} else if len(values) != f.rows {
		return eris.Errorf("frame: column %q has %d values, frame has %d rows", name, len(values), f.rows)
	}
	f.cols = append(f.cols, Column{Name: name, Kind: kind, Values: values})
	return nil
}

// DropColumn removes an attribute column by name.
func (f *Frame) DropColumn(name string) error {
	for i := range f.cols {
		if f.cols[i].Name == name {
			f.cols = append(f.cols[:i], f.cols[i+1:]...)
			return nil
		}
	}
	return eris.Errorf("frame: no column %q", name)
}

// SetGeometry attaches a geometry column with the given SRID. Entries may
// be nil for records without a shape.
func (f *Frame) SetGeometry(geoms []geom.T, srid int) error {
	if len(f.cols) == 0 && f.geoms == nil {
		f.rows = len(geoms)
	} else if len(geoms) != f.rows {
		return eris.Errorf("frame: %d geometries for %d rows", len(geoms), f.rows)
	}
	f.geoms = geoms
	f.srid = srid
	return nil
}

// Geometry returns the geometry for row i, which may be nil.
func (f *Frame) Geometry(i int) geom.T {
	if f.geoms == nil {
		return nil
	}
	return f.geoms[i]
}

// Geometries returns the full geometry column.
func (f *Frame) Geometries() []geom.T { return f.geoms }

// PointsFromXY builds a point geometry column from two numeric columns.
// Rows where either value is null or not numeric get a nil geometry.
func (f *Frame) PointsFromXY(xcol, ycol string, srid int) error {
	xs, ok := f.Column(xcol)
	if !ok {
		return eris.Errorf("frame: no column %q", xcol)
	}
	ys, ok := f.Column(ycol)
	if !ok {
		return eris.Errorf("frame: no column %q", ycol)
	}

	geoms := make([]geom.T, f.rows)
	for i := 0; i < f.rows; i++ {
		x, okX := asFloat(xs.Values[i])
		y, okY := asFloat(ys.Values[i])
		if !okX || !okY {
			continue
		}
		geoms[i] = geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(srid)
	}
	return f.SetGeometry(geoms, srid)
}

// Head returns a new frame with the first n rows. n larger than the row
// count returns a copy of the whole frame.
func (f *Frame) Head(n int) *Frame {
	if n > f.rows {
		n = f.rows
	}
	out := New(f.name)
	for _, c := range f.cols {
		vals := make([]any, n)
		copy(vals, c.Values[:n])
		_ = out.AddColumn(c.Name, c.Kind, vals)
	}
	if f.geoms != nil {
		geoms := make([]geom.T, n)
		copy(geoms, f.geoms[:n])
		_ = out.SetGeometry(geoms, f.srid)
	}
	return out
}

// Row returns the attribute values of row i keyed by column name. Null
// values are omitted.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.cols))
	for _, c := range f.cols {
		if c.Values[i] != nil {
			row[c.Name] = c.Values[i]
		}
	}
	return row
}

// Bounds returns the total bounds over all non-nil geometries, or nil when
// the frame has no geometry or only nil geometries.
func (f *Frame) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, g := range f.geoms {
		if g == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b = b.Extend(g)
	}
	return b
}

// GeometryCounts returns feature counts per geometry type name. Nil
// geometries count under "null".
func (f *Frame) GeometryCounts() map[string]int {
	if f.geoms == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, g := range f.geoms {
		counts[geometryTypeName(g)]++
	}
	return counts
}

func geometryTypeName(g geom.T) string {
	switch g.(type) {
	case nil:
		return "null"
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// asFloat coerces a column value to float64 for coordinate use.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
