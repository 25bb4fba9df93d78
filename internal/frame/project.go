package frame

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const (
	// SRIDWGS84 is geographic longitude/latitude.
	SRIDWGS84 = 4326
	// SRIDWebMercator is spherical Mercator as used by web tile maps.
	SRIDWebMercator = 3857

	earthRadius = 6378137.0
	maxLatitude = 85.05112878
)

// Reproject transforms the geometry column to the target SRID. Only the
// WGS84 / Web Mercator pair is supported; other SRIDs are carried through
// unchanged by the loaders and refuse to reproject here.
func (f *Frame) Reproject(srid int) error {
	if f.geoms == nil {
		return eris.New("frame: no geometry to reproject")
	}
	if srid == f.srid {
		return nil
	}

	var tx func(x, y float64) (float64, float64)
	switch {
	case f.srid == SRIDWGS84 && srid == SRIDWebMercator:
		tx = lonLatToMercator
	case f.srid == SRIDWebMercator && srid == SRIDWGS84:
		tx = mercatorToLonLat
	default:
		return eris.Errorf("frame: unsupported reprojection %d -> %d", f.srid, srid)
	}

	out := make([]geom.T, len(f.geoms))
	for i, g := range f.geoms {
		if g == nil {
			continue
		}
		t, err := transformGeometry(g, tx, srid)
		if err != nil {
			return eris.Wrapf(err, "frame: reproject row %d", i)
		}
		out[i] = t
	}
	f.geoms = out
	f.srid = srid
	return nil
}

// lonLatToMercator is the forward spherical Mercator projection.
func lonLatToMercator(lon, lat float64) (float64, float64) {
	if lat > maxLatitude {
		lat = maxLatitude
	} else if lat < -maxLatitude {
		lat = -maxLatitude
	}
	x := earthRadius * lon * math.Pi / 180.0
	y := earthRadius * math.Log(math.Tan(math.Pi/4.0+lat*math.Pi/360.0))
	return x, y
}

// mercatorToLonLat is the inverse spherical Mercator projection.
func mercatorToLonLat(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180.0 / math.Pi
	lat := (2.0*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2.0) * 180.0 / math.Pi
	return lon, lat
}

// transformGeometry applies tx to every coordinate pair and rebuilds the
// geometry with the target SRID.
func transformGeometry(g geom.T, tx func(x, y float64) (float64, float64), srid int) (geom.T, error) {
	layout := g.Layout()
	stride := layout.Stride()

	flat := make([]float64, len(g.FlatCoords()))
	copy(flat, g.FlatCoords())
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = tx(flat[i], flat[i+1])
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, t.Ends()).SetSRID(srid), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, t.Ends()).SetSRID(srid), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(layout, flat, t.Endss()).SetSRID(srid), nil
	default:
		return nil, eris.Errorf("frame: cannot transform geometry type %T", g)
	}
}
