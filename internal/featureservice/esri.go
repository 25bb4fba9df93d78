package featureservice

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

// Feature is one record of a query response: attributes keyed by field
// name plus an optional geometry.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *esriGeometry  `json:"geometry"`
}

// esriGeometry covers the geometry variants a layer query can return. The
// populated member follows the layer's geometryType.
type esriGeometry struct {
	X      *float64      `json:"x"`
	Y      *float64      `json:"y"`
	Points [][]float64   `json:"points"`
	Paths  [][][]float64 `json:"paths"`
	Rings  [][][]float64 `json:"rings"`
}

// queryResponse is the paged feature payload.
type queryResponse struct {
	ObjectIDFieldName     string      `json:"objectIdFieldName"`
	Fields                []FieldInfo `json:"fields"`
	GeometryType          string      `json:"geometryType"`
	Features              []Feature   `json:"features"`
	ExceededTransferLimit bool        `json:"exceededTransferLimit"`
	SpatialReference      struct {
		WKID       int `json:"wkid"`
		LatestWKID int `json:"latestWkid"`
	} `json:"spatialReference"`
}

// toGeom converts an ESRI JSON geometry to go-geom. A nil or empty
// geometry yields nil.
func (g *esriGeometry) toGeom(srid int) (geom.T, error) {
	if g == nil {
		return nil, nil
	}

	switch {
	case g.X != nil && g.Y != nil:
		return geom.NewPointFlat(geom.XY, []float64{*g.X, *g.Y}).SetSRID(srid), nil

	case len(g.Points) > 0:
		mp := geom.NewMultiPoint(geom.XY).SetSRID(srid)
		for _, pt := range g.Points {
			if len(pt) < 2 {
				return nil, eris.New("featureservice: short point tuple")
			}
			if err := mp.Push(geom.NewPointFlat(geom.XY, []float64{pt[0], pt[1]})); err != nil {
				return nil, eris.Wrap(err, "featureservice: multipoint")
			}
		}
		return mp, nil

	case len(g.Paths) > 0:
		mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)
		for _, path := range g.Paths {
			if err := mls.Push(geom.NewLineStringFlat(geom.XY, flattenPath(path))); err != nil {
				return nil, eris.Wrap(err, "featureservice: path")
			}
		}
		return mls, nil

	case len(g.Rings) > 0:
		// ESRI JSON does not group rings into polygons; outer rings are
		// clockwise. Each ring becomes its own polygon member, which is
		// how single-polygon layers round-trip exactly.
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
		for _, ring := range g.Rings {
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flattenPath(ring))); err != nil {
				return nil, eris.Wrap(err, "featureservice: ring")
			}
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrap(err, "featureservice: polygon")
			}
		}
		return mp, nil

	default:
		return nil, nil
	}
}

func flattenPath(path [][]float64) []float64 {
	flat := make([]float64, 0, len(path)*2)
	for _, v := range path {
		if len(v) >= 2 {
			flat = append(flat, v[0], v[1])
		}
	}
	return flat
}

// kindForFieldType maps an esri field type to a frame column kind.
func kindForFieldType(esriType string) frame.Kind {
	switch esriType {
	case "esriFieldTypeOID", "esriFieldTypeInteger", "esriFieldTypeSmallInteger":
		return frame.KindInt
	case "esriFieldTypeDouble", "esriFieldTypeSingle":
		return frame.KindFloat
	default:
		// String, Date (epoch millis are left as-is in attributes but
		// rendered as strings), GUID, GlobalID.
		return frame.KindString
	}
}

// ToFrame assembles query features into a frame using the layer's field
// order and spatial reference.
func ToFrame(name string, info *LayerInfo, features []Feature) (*frame.Frame, error) {
	srid := info.SRID()
	if srid == 0 {
		srid = frame.SRIDWGS84
	}

	f := frame.New(name)
	for _, field := range info.Fields {
		kind := kindForFieldType(field.Type)
		values := make([]any, len(features))
		for i, feat := range features {
			values[i] = coerceAttribute(kind, feat.Attributes[field.Name])
		}
		if err := f.AddColumn(field.Name, kind, values); err != nil {
			return nil, err
		}
	}

	geoms := make([]geom.T, len(features))
	for i, feat := range features {
		g, err := feat.Geometry.toGeom(srid)
		if err != nil {
			return nil, eris.Wrapf(err, "featureservice: feature %d", i)
		}
		geoms[i] = g
	}
	if err := f.SetGeometry(geoms, srid); err != nil {
		return nil, err
	}
	return f, nil
}

// coerceAttribute converts a decoded JSON attribute to the column kind's
// representation.
func coerceAttribute(kind frame.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case frame.KindInt:
		if x, ok := v.(float64); ok {
			return int64(x)
		}
	case frame.KindFloat:
		if x, ok := v.(float64); ok {
			return x
		}
	case frame.KindString:
		switch x := v.(type) {
		case string:
			return x
		default:
			data, err := json.Marshal(x)
			if err != nil {
				return nil
			}
			return string(data)
		}
	}
	return v
}
