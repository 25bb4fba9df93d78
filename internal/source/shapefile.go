package source

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/basinlabs/geoframe/internal/frame"
)

// ShapefileOptions configures the shapefile reader.
type ShapefileOptions struct {
	Name     string
	SRID     int    // coordinate system of the shapefile (default 4326)
	Encoding string // DBF attribute encoding: "" (utf-8) or "latin1"
}

// ReadShapefile reads a shapefile and its DBF attributes into a frame.
// Attribute columns are typed from the DBF field descriptors; records with
// nil or unsupported shapes keep a nil geometry.
func ReadShapefile(path string, opts ShapefileOptions) (*frame.Frame, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	if opts.SRID == 0 {
		opts.SRID = frame.SRIDWGS84
	}

	var decode func(string) string
	switch strings.ToLower(opts.Encoding) {
	case "", "utf-8", "utf8":
		decode = func(s string) string { return s }
	case "latin1", "iso-8859-1":
		decoder := charmap.ISO8859_1.NewDecoder()
		decode = func(s string) string {
			out, decErr := decoder.String(s)
			if decErr != nil {
				return s
			}
			return out
		}
	default:
		return nil, eris.Errorf("shapefile: unsupported encoding %q", opts.Encoding)
	}

	fields := reader.Fields()
	raw := make([][]string, len(fields))
	var geoms []geom.T
	var unsupported int

	for reader.Next() {
		_, shape := reader.Shape()

		for i := range fields {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			val = strings.TrimSpace(decode(val))
			raw[i] = append(raw[i], val)
		}

		g := shapeToGeom(shape, opts.SRID)
		if g == nil && shape != nil {
			unsupported++
		}
		geoms = append(geoms, g)
	}

	if unsupported > 0 {
		zap.L().Debug("shapefile: records with unsupported shapes",
			zap.String("path", path),
			zap.Int("count", unsupported),
		)
	}

	f := frame.New(opts.Name)
	for i, field := range fields {
		name := strings.TrimRight(field.String(), "\x00")
		kind, values := dbfColumn(field.Fieldtype, raw[i])
		if err := f.AddColumn(name, kind, values); err != nil {
			return nil, err
		}
	}
	if err := f.SetGeometry(geoms, opts.SRID); err != nil {
		return nil, err
	}
	return f, nil
}

// dbfColumn converts raw attribute strings using the DBF field type:
// C character, N/F numeric, L logical, D date. Numeric fields still go
// through inference so integer-valued columns come out as ints.
func dbfColumn(fieldType byte, raw []string) (frame.Kind, []any) {
	switch fieldType {
	case 'N', 'F':
		return inferColumn(raw)
	case 'L':
		values := make([]any, len(raw))
		for i, s := range raw {
			switch strings.ToUpper(s) {
			case "T", "Y":
				values[i] = true
			case "F", "N":
				values[i] = false
			}
		}
		return frame.KindBool, values
	default:
		values := make([]any, len(raw))
		for i, s := range raw {
			if s != "" {
				values[i] = s
			}
		}
		return frame.KindString, values
	}
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Unsupported
// shape types return nil.
func shapeToGeom(shape shp.Shape, srid int) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid)
	case *shp.PolyLine:
		return polyLineToMultiLineString(s, srid)
	case *shp.Polygon:
		return polygonToMultiPolygon(s, srid)
	default:
		return nil
	}
}

// polyLineToMultiLineString converts a shapefile PolyLine to a
// geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine, srid int) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)

	for i := int32(0); i < pl.NumParts; i++ {
		flat := partCoords(pl.Points, pl.Parts, i, pl.NumParts)
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon, srid int) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	for i := int32(0); i < p.NumParts; i++ {
		flat := partCoords(p.Points, p.Parts, i, p.NumParts)
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partCoords returns the flat coordinates of part i of a multi-part shape.
func partCoords(points []shp.Point, parts []int32, i, numParts int32) []float64 {
	start := parts[i]
	end := int32(len(points))
	if i+1 < numParts {
		end = parts[i+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
