package source

import (
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/basinlabs/geoframe/internal/frame"
)

// crsEPSGPattern matches both legacy ("EPSG:4326") and URN
// ("urn:ogc:def:crs:EPSG::4326") CRS names.
var crsEPSGPattern = regexp.MustCompile(`EPSG:+(\d+)$`)

// geojsonEnvelope sniffs the top-level type and optional crs member before
// the geometry decode.
type geojsonEnvelope struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// ReadGeoJSON reads a FeatureCollection, a single Feature, or a bare
// geometry into a frame. Properties become columns; the union of keys is
// taken across features with missing keys as nulls.
func ReadGeoJSON(r io.Reader, name string) (*frame.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: read")
	}
	if len(data) == 0 {
		return nil, eris.New("geojson: empty input")
	}

	var envelope geojsonEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, eris.Wrap(err, "geojson: parse")
	}
	srid := sridFromCRS(envelope)

	var features []*geojson.Feature
	switch envelope.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "geojson: parse feature collection")
		}
		features = fc.Features
	case "Feature":
		var feat geojson.Feature
		if err := json.Unmarshal(data, &feat); err != nil {
			return nil, eris.Wrap(err, "geojson: parse feature")
		}
		features = []*geojson.Feature{&feat}
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "geojson: parse geometry")
		}
		features = []*geojson.Feature{{Geometry: g}}
	}

	geoms := make([]geom.T, len(features))
	props := make([]map[string]any, len(features))
	for i, feat := range features {
		if feat.Geometry != nil {
			geoms[i] = setGeomSRID(feat.Geometry, srid)
		}
		props[i] = feat.Properties
	}

	f, err := frameFromProperties(name, props)
	if err != nil {
		return nil, err
	}
	if err := f.SetGeometry(geoms, srid); err != nil {
		return nil, err
	}
	return f, nil
}

// sridFromCRS resolves the crs member to an SRID. GeoJSON without a crs is
// WGS84 by definition, as is the OGC CRS84 URN.
func sridFromCRS(envelope geojsonEnvelope) int {
	if envelope.CRS == nil {
		return frame.SRIDWGS84
	}
	if m := crsEPSGPattern.FindStringSubmatch(envelope.CRS.Properties.Name); m != nil {
		srid, err := strconv.Atoi(m[1])
		if err == nil {
			return srid
		}
	}
	return frame.SRIDWGS84
}

// frameFromProperties builds attribute columns from per-feature property
// maps: the union of keys in first-appearance order, nested values
// stringified as JSON.
func frameFromProperties(name string, props []map[string]any) (*frame.Frame, error) {
	var keys []string
	seen := make(map[string]bool)
	for _, p := range props {
		for k := range p {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	// Map iteration order is random; sort for deterministic columns.
	sort.Strings(keys)

	f := frame.New(name)
	for _, k := range keys {
		values := make([]any, len(props))
		for i, p := range props {
			values[i] = normalizeJSONValue(p[k])
		}
		kind := kindOfValues(values)
		coerceValues(kind, values)
		if err := f.AddColumn(k, kind, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// normalizeJSONValue maps decoded JSON values onto column value types.
// Objects and arrays are stringified.
func normalizeJSONValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, float64, bool:
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// kindOfValues infers a column kind from decoded JSON values: float64
// columns whose values are all integral become int columns.
func kindOfValues(values []any) frame.Kind {
	allFloat, allInt, allBool := true, true, true
	empty := true
	for _, v := range values {
		if v == nil {
			continue
		}
		empty = false
		switch x := v.(type) {
		case float64:
			allBool = false
			if x != float64(int64(x)) {
				allInt = false
			}
		case bool:
			allFloat, allInt = false, false
		default:
			return frame.KindString
		}
	}
	switch {
	case empty:
		return frame.KindString
	case allInt:
		return frame.KindInt
	case allFloat:
		return frame.KindFloat
	case allBool:
		return frame.KindBool
	default:
		return frame.KindString
	}
}

// coerceValues rewrites values in place to the representation of kind.
func coerceValues(kind frame.Kind, values []any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		switch kind {
		case frame.KindInt:
			if x, ok := v.(float64); ok {
				values[i] = int64(x)
			}
		case frame.KindString:
			switch x := v.(type) {
			case float64:
				values[i] = strconv.FormatFloat(x, 'g', -1, 64)
			case bool:
				values[i] = strconv.FormatBool(x)
			}
		}
	}
}

// setGeomSRID stamps an SRID on a geometry.
func setGeomSRID(g geom.T, srid int) geom.T {
	switch t := g.(type) {
	case *geom.Point:
		return t.SetSRID(srid)
	case *geom.MultiPoint:
		return t.SetSRID(srid)
	case *geom.LineString:
		return t.SetSRID(srid)
	case *geom.MultiLineString:
		return t.SetSRID(srid)
	case *geom.Polygon:
		return t.SetSRID(srid)
	case *geom.MultiPolygon:
		return t.SetSRID(srid)
	case *geom.GeometryCollection:
		return t
	default:
		return g
	}
}
