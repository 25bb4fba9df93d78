package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

func pointFrame(t *testing.T, srid int) *frame.Frame {
	t.Helper()
	f := frame.New("stations")
	require.NoError(t, f.AddColumn("name", frame.KindString, []any{"A", "B"}))
	require.NoError(t, f.AddColumn("riders", frame.KindInt, []any{int64(120), nil}))
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{-122.27, 37.80}).SetSRID(srid),
		nil,
	}, srid))
	return f
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, pointFrame(t, frame.SRIDWGS84)))

	var doc struct {
		Type     string `json:"type"`
		CRS      *struct{} `json:"crs"`
		Features []struct {
			Type       string          `json:"type"`
			Geometry   json.RawMessage `json:"geometry"`
			Properties map[string]any  `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Nil(t, doc.CRS, "WGS84 output carries no crs member")
	require.Len(t, doc.Features, 2)

	assert.Equal(t, "Feature", doc.Features[0].Type)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-122.27,37.8]}`, string(doc.Features[0].Geometry))
	assert.Equal(t, "A", doc.Features[0].Properties["name"])
	assert.Equal(t, 120.0, doc.Features[0].Properties["riders"])

	// Null geometry and omitted null property.
	assert.Equal(t, "null", string(doc.Features[1].Geometry))
	_, hasRiders := doc.Features[1].Properties["riders"]
	assert.False(t, hasRiders)
}

func TestWriteGeoJSON_NonWGS84CarriesCRS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, pointFrame(t, frame.SRIDWebMercator)))

	var doc struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.NotNil(t, doc.CRS)
	assert.Equal(t, "EPSG:3857", doc.CRS.Properties.Name)
}

func TestWriteGeoJSON_NoGeometry(t *testing.T) {
	f := frame.New("plain")
	require.NoError(t, f.AddColumn("a", frame.KindInt, []any{int64(1)}))

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, f))
	assert.Contains(t, buf.String(), `"geometry":null`)
}
