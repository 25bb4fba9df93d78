package source

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

// KML documents nest Placemarks inside arbitrary Document/Folder levels.
// Only the data-bearing elements are modeled; styles are presentation and
// are skipped.
type kmlRoot struct {
	XMLName  xml.Name     `xml:"kml"`
	Document *kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Folders    []kmlDocument  `xml:"Folder"`
	Documents  []kmlDocument  `xml:"Document"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name         string           `xml:"name"`
	Description  string           `xml:"description"`
	ExtendedData *kmlExtendedData `xml:"ExtendedData"`
	Point        *kmlGeometry     `xml:"Point"`
	LineString   *kmlGeometry     `xml:"LineString"`
	Polygon      *kmlPolygon      `xml:"Polygon"`
	Multi        *kmlMulti        `xml:"MultiGeometry"`
}

type kmlExtendedData struct {
	Data       []kmlData       `xml:"Data"`
	SchemaData []kmlSchemaData `xml:"SchemaData"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSchemaData struct {
	SimpleData []kmlSimpleData `xml:"SimpleData"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlGeometry struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer  kmlBoundary   `xml:"outerBoundaryIs"`
	Inners []kmlBoundary `xml:"innerBoundaryIs"`
}

type kmlBoundary struct {
	LinearRing kmlGeometry `xml:"LinearRing"`
}

type kmlMulti struct {
	Points      []kmlGeometry `xml:"Point"`
	LineStrings []kmlGeometry `xml:"LineString"`
	Polygons    []kmlPolygon  `xml:"Polygon"`
}

// ReadKML reads Placemarks from a KML document into a frame. KML
// coordinates are always WGS84 longitude/latitude.
func ReadKML(r io.Reader, name string) (*frame.Frame, error) {
	var root kmlRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, eris.Wrap(err, "kml: parse")
	}
	if root.Document == nil {
		return nil, eris.New("kml: no Document element")
	}

	var placemarks []kmlPlacemark
	collectPlacemarks(*root.Document, &placemarks)
	if len(placemarks) == 0 {
		return nil, eris.New("kml: no Placemark elements")
	}

	geoms := make([]geom.T, len(placemarks))
	props := make([]map[string]any, len(placemarks))
	for i, pm := range placemarks {
		g, err := placemarkGeometry(pm)
		if err != nil {
			return nil, eris.Wrapf(err, "kml: placemark %d", i)
		}
		geoms[i] = g
		props[i] = placemarkProperties(pm)
	}

	f, err := frameFromProperties(name, props)
	if err != nil {
		return nil, err
	}
	if err := f.SetGeometry(geoms, frame.SRIDWGS84); err != nil {
		return nil, err
	}
	return f, nil
}

// collectPlacemarks walks nested Documents and Folders depth-first.
func collectPlacemarks(doc kmlDocument, out *[]kmlPlacemark) {
	*out = append(*out, doc.Placemarks...)
	for _, folder := range doc.Folders {
		collectPlacemarks(folder, out)
	}
	for _, nested := range doc.Documents {
		collectPlacemarks(nested, out)
	}
}

// placemarkProperties flattens name, description, and both ExtendedData
// forms into a property map. Duplicate keys last-wins.
func placemarkProperties(pm kmlPlacemark) map[string]any {
	props := make(map[string]any)
	if pm.Name != "" {
		props["Name"] = pm.Name
	}
	if desc := strings.TrimSpace(pm.Description); desc != "" {
		props["Description"] = desc
	}
	if pm.ExtendedData != nil {
		for _, d := range pm.ExtendedData.Data {
			props[d.Name] = strings.TrimSpace(d.Value)
		}
		for _, sd := range pm.ExtendedData.SchemaData {
			for _, d := range sd.SimpleData {
				props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
	}
	return props
}

// placemarkGeometry converts the placemark's geometry element. Placemarks
// without geometry get nil.
func placemarkGeometry(pm kmlPlacemark) (geom.T, error) {
	switch {
	case pm.Point != nil:
		coords, err := parseCoordinates(pm.Point.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(coords) == 0 {
			return nil, eris.New("empty Point coordinates")
		}
		return geom.NewPointFlat(geom.XY, coords[:2]).SetSRID(frame.SRIDWGS84), nil

	case pm.LineString != nil:
		coords, err := parseCoordinates(pm.LineString.Coordinates)
		if err != nil {
			return nil, err
		}
		return geom.NewLineStringFlat(geom.XY, coords).SetSRID(frame.SRIDWGS84), nil

	case pm.Polygon != nil:
		return polygonFromKML(*pm.Polygon)

	case pm.Multi != nil:
		return multiFromKML(*pm.Multi)

	default:
		return nil, nil
	}
}

func polygonFromKML(kp kmlPolygon) (*geom.Polygon, error) {
	poly := geom.NewPolygon(geom.XY).SetSRID(frame.SRIDWGS84)

	outer, err := parseCoordinates(kp.Outer.LinearRing.Coordinates)
	if err != nil {
		return nil, err
	}
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, outer)); err != nil {
		return nil, eris.Wrap(err, "outer ring")
	}

	for _, inner := range kp.Inners {
		ring, err := parseCoordinates(inner.LinearRing.Coordinates)
		if err != nil {
			return nil, err
		}
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, ring)); err != nil {
			return nil, eris.Wrap(err, "inner ring")
		}
	}
	return poly, nil
}

func multiFromKML(m kmlMulti) (geom.T, error) {
	// Homogeneous multis map onto the matching multi type. KML allows mixed
	// members; those are rejected.
	switch {
	case len(m.Polygons) > 0 && len(m.Points) == 0 && len(m.LineStrings) == 0:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(frame.SRIDWGS84)
		for _, kp := range m.Polygons {
			poly, err := polygonFromKML(kp)
			if err != nil {
				return nil, err
			}
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrap(err, "multigeometry polygon")
			}
		}
		return mp, nil

	case len(m.LineStrings) > 0 && len(m.Points) == 0 && len(m.Polygons) == 0:
		mls := geom.NewMultiLineString(geom.XY).SetSRID(frame.SRIDWGS84)
		for _, ls := range m.LineStrings {
			coords, err := parseCoordinates(ls.Coordinates)
			if err != nil {
				return nil, err
			}
			if err := mls.Push(geom.NewLineStringFlat(geom.XY, coords)); err != nil {
				return nil, eris.Wrap(err, "multigeometry linestring")
			}
		}
		return mls, nil

	case len(m.Points) > 0 && len(m.LineStrings) == 0 && len(m.Polygons) == 0:
		mp := geom.NewMultiPoint(geom.XY).SetSRID(frame.SRIDWGS84)
		for _, pt := range m.Points {
			coords, err := parseCoordinates(pt.Coordinates)
			if err != nil {
				return nil, err
			}
			if len(coords) == 0 {
				continue
			}
			if err := mp.Push(geom.NewPointFlat(geom.XY, coords[:2])); err != nil {
				return nil, eris.Wrap(err, "multigeometry point")
			}
		}
		return mp, nil

	default:
		return nil, eris.New("mixed MultiGeometry is not supported")
	}
}

// parseCoordinates parses a KML coordinates string: whitespace-separated
// "lon,lat[,alt]" tuples. Altitude is dropped.
func parseCoordinates(s string) ([]float64, error) {
	var flat []float64
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, eris.Errorf("malformed coordinate tuple %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse longitude %q", parts[0])
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse latitude %q", parts[1])
		}
		flat = append(flat, lon, lat)
	}
	return flat, nil
}
