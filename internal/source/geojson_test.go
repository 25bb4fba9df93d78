package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

const trailheadsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-118.80, 34.00]},
      "properties": {"TRL_NAME": "Medea Creek Trail", "ELEV_FT": 1100, "PARKING": true}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-118.78, 34.02]},
      "properties": {"TRL_NAME": "Ocean Vista", "ELEV_FT": 1425.5}
    },
    {
      "type": "Feature",
      "geometry": null,
      "properties": {"TRL_NAME": "Unmapped"}
    }
  ]
}`

func TestReadGeoJSON_FeatureCollection(t *testing.T) {
	f, err := ReadGeoJSON(strings.NewReader(trailheadsGeoJSON), "trailheads")
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, frame.SRIDWGS84, f.SRID())
	// Columns come out sorted.
	assert.Equal(t, []string{"ELEV_FT", "PARKING", "TRL_NAME"}, f.ColumnNames())

	elev, ok := f.Column("ELEV_FT")
	require.True(t, ok)
	assert.Equal(t, frame.KindFloat, elev.Kind)
	assert.Equal(t, 1100.0, elev.Values[0])
	assert.Nil(t, elev.Values[2])

	pt, ok := f.Geometry(0).(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -118.80, pt.X(), 1e-9)
	assert.Equal(t, frame.SRIDWGS84, pt.SRID())
	assert.Nil(t, f.Geometry(2))
}

func TestReadGeoJSON_SingleFeature(t *testing.T) {
	doc := `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"id":7}}`

	f, err := ReadGeoJSON(strings.NewReader(doc), "one")
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumRows())

	id, ok := f.Column("id")
	require.True(t, ok)
	assert.Equal(t, frame.KindInt, id.Kind)
	assert.Equal(t, int64(7), id.Values[0])
}

func TestReadGeoJSON_BareGeometry(t *testing.T) {
	doc := `{"type":"LineString","coordinates":[[0,0],[1,1]]}`

	f, err := ReadGeoJSON(strings.NewReader(doc), "line")
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumRows())
	assert.Equal(t, 0, f.NumCols())

	_, ok := f.Geometry(0).(*geom.LineString)
	assert.True(t, ok)
}

func TestReadGeoJSON_CRSMember(t *testing.T) {
	doc := `{
	  "type": "FeatureCollection",
	  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::3857"}},
	  "features": [
	    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [100, 200]}, "properties": {}}
	  ]
	}`

	f, err := ReadGeoJSON(strings.NewReader(doc), "projected")
	require.NoError(t, err)
	assert.Equal(t, frame.SRIDWebMercator, f.SRID())
}

func TestReadGeoJSON_NestedPropertiesStringified(t *testing.T) {
	doc := `{"type":"Feature","geometry":null,"properties":{"tags":{"a":1}}}`

	f, err := ReadGeoJSON(strings.NewReader(doc), "nested")
	require.NoError(t, err)

	tags, ok := f.Column("tags")
	require.True(t, ok)
	assert.Equal(t, frame.KindString, tags.Kind)
	assert.JSONEq(t, `{"a":1}`, tags.Values[0].(string))
}

func TestReadGeoJSON_Empty(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader(""), "empty")
	assert.Error(t, err)
}

func TestKindOfValues_MixedIntAndFloat(t *testing.T) {
	kind := kindOfValues([]any{1.0, 2.5, nil})
	assert.Equal(t, frame.KindFloat, kind)
}

func TestKindOfValues_Bool(t *testing.T) {
	kind := kindOfValues([]any{true, false})
	assert.Equal(t, frame.KindBool, kind)
}
