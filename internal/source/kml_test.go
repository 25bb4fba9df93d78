package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

const volcanoesKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Volcanoes</name>
    <Folder>
      <name>Cascades</name>
      <Placemark>
        <name>Mount St Helens</name>
        <description>Active stratovolcano</description>
        <ExtendedData>
          <Data name="ELEV_M"><value>2549</value></Data>
        </ExtendedData>
        <Point><coordinates>-122.18,46.20,2549</coordinates></Point>
      </Placemark>
      <Placemark>
        <name>Crater Rim</name>
        <LineString>
          <coordinates>
            -122.19,46.21 -122.17,46.21 -122.17,46.19
          </coordinates>
        </LineString>
      </Placemark>
    </Folder>
    <Placemark>
      <name>Hazard Zone</name>
      <ExtendedData>
        <SchemaData schemaUrl="#zones">
          <SimpleData name="ZONE">red</SimpleData>
        </SchemaData>
      </ExtendedData>
      <Polygon>
        <outerBoundaryIs>
          <LinearRing>
            <coordinates>-122.3,46.1 -122.0,46.1 -122.0,46.3 -122.3,46.1</coordinates>
          </LinearRing>
        </outerBoundaryIs>
      </Polygon>
    </Placemark>
  </Document>
</kml>`

func TestReadKML(t *testing.T) {
	f, err := ReadKML(strings.NewReader(volcanoesKML), "volcanoes")
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, frame.SRIDWGS84, f.SRID())

	name, ok := f.Column("Name")
	require.True(t, ok)
	// Document-level placemarks come first, then folder contents.
	assert.Contains(t, name.Values, "Mount St Helens")
	assert.Contains(t, name.Values, "Hazard Zone")

	counts := f.GeometryCounts()
	assert.Equal(t, 1, counts["Point"])
	assert.Equal(t, 1, counts["LineString"])
	assert.Equal(t, 1, counts["Polygon"])

	elev, ok := f.Column("ELEV_M")
	require.True(t, ok)
	zone, ok2 := f.Column("ZONE")
	require.True(t, ok2)

	for i := 0; i < f.NumRows(); i++ {
		switch name.Values[i] {
		case "Mount St Helens":
			assert.Equal(t, "2549", elev.Values[i])
			pt := f.Geometry(i).(*geom.Point)
			assert.InDelta(t, -122.18, pt.X(), 1e-9)
			assert.InDelta(t, 46.20, pt.Y(), 1e-9)
		case "Hazard Zone":
			assert.Equal(t, "red", zone.Values[i])
			_, isPoly := f.Geometry(i).(*geom.Polygon)
			assert.True(t, isPoly)
		}
	}
}

func TestReadKML_MultiGeometry(t *testing.T) {
	doc := `<kml><Document><Placemark>
	  <MultiGeometry>
	    <Point><coordinates>0,0</coordinates></Point>
	    <Point><coordinates>1,1</coordinates></Point>
	  </MultiGeometry>
	</Placemark></Document></kml>`

	f, err := ReadKML(strings.NewReader(doc), "multi")
	require.NoError(t, err)

	mp, ok := f.Geometry(0).(*geom.MultiPoint)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPoints())
}

func TestReadKML_MixedMultiGeometry(t *testing.T) {
	doc := `<kml><Document><Placemark>
	  <MultiGeometry>
	    <Point><coordinates>0,0</coordinates></Point>
	    <LineString><coordinates>0,0 1,1</coordinates></LineString>
	  </MultiGeometry>
	</Placemark></Document></kml>`

	_, err := ReadKML(strings.NewReader(doc), "mixed")
	assert.Error(t, err)
}

func TestReadKML_NoDocument(t *testing.T) {
	_, err := ReadKML(strings.NewReader(`<kml></kml>`), "empty")
	assert.Error(t, err)
}

func TestParseCoordinates(t *testing.T) {
	flat, err := parseCoordinates(" -122.18,46.20,2549 -122.17,46.19 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{-122.18, 46.20, -122.17, 46.19}, flat)
}

func TestParseCoordinates_Malformed(t *testing.T) {
	_, err := parseCoordinates("nope")
	assert.Error(t, err)
}
