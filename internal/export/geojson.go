// Package export writes frames out as GeoJSON, CSV, or Parquet.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/basinlabs/geoframe/internal/frame"
)

// featureCollection is the output document. GeoJSON is WGS84 by
// definition; frames in another CRS carry a legacy named crs member so the
// coordinates stay interpretable.
type featureCollection struct {
	Type     string        `json:"type"`
	CRS      *crsMember    `json:"crs,omitempty"`
	Features []jsonFeature `json:"features"`
}

type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type jsonFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// WriteGeoJSON writes the frame as a FeatureCollection. Null attribute
// values are omitted from properties; rows without a shape get a null
// geometry member.
func WriteGeoJSON(w io.Writer, f *frame.Frame) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]jsonFeature, 0, f.NumRows()),
	}

	if f.HasGeometry() && f.SRID() != 0 && f.SRID() != frame.SRIDWGS84 {
		crs := &crsMember{Type: "name"}
		crs.Properties.Name = fmt.Sprintf("EPSG:%d", f.SRID())
		fc.CRS = crs
	}

	nullGeometry := json.RawMessage("null")
	for i := 0; i < f.NumRows(); i++ {
		geometry := nullGeometry
		if g := f.Geometry(i); g != nil {
			encoded, err := geojson.Marshal(g)
			if err != nil {
				return eris.Wrapf(err, "export: encode geometry for row %d", i)
			}
			geometry = encoded
		}
		fc.Features = append(fc.Features, jsonFeature{
			Type:       "Feature",
			Geometry:   geometry,
			Properties: f.Row(i),
		})
	}

	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}
