package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestReproject_RoundTrip(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{-122.27, 37.80}).SetSRID(SRIDWGS84),
		nil,
	}, SRIDWGS84))

	require.NoError(t, f.Reproject(SRIDWebMercator))
	assert.Equal(t, SRIDWebMercator, f.SRID())

	pt := f.Geometry(0).(*geom.Point)
	assert.Equal(t, SRIDWebMercator, pt.SRID())
	assert.Nil(t, f.Geometry(1))

	require.NoError(t, f.Reproject(SRIDWGS84))
	back := f.Geometry(0).(*geom.Point)
	assert.InDelta(t, -122.27, back.X(), 1e-6)
	assert.InDelta(t, 37.80, back.Y(), 1e-6)
}

func TestReproject_Antimeridian(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{180, 0}).SetSRID(SRIDWGS84),
	}, SRIDWGS84))

	require.NoError(t, f.Reproject(SRIDWebMercator))
	pt := f.Geometry(0).(*geom.Point)
	assert.InDelta(t, 20037508.34, pt.X(), 0.01)
	assert.InDelta(t, 0, pt.Y(), 1e-9)
}

func TestReproject_SameSRIDIsNoop(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{1, 2}).SetSRID(SRIDWGS84),
	}, SRIDWGS84))

	require.NoError(t, f.Reproject(SRIDWGS84))
	assert.Equal(t, SRIDWGS84, f.SRID())
}

func TestReproject_UnsupportedPair(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{1, 2}).SetSRID(2263),
	}, 2263))

	assert.Error(t, f.Reproject(SRIDWGS84))
}

func TestReproject_NoGeometry(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1)}))
	assert.Error(t, f.Reproject(SRIDWebMercator))
}

func TestReproject_ClampsLatitude(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{0, 89.9}).SetSRID(SRIDWGS84),
	}, SRIDWGS84))

	require.NoError(t, f.Reproject(SRIDWebMercator))
	pt := f.Geometry(0).(*geom.Point)

	_, yMax := lonLatToMercator(0, maxLatitude)
	assert.InDelta(t, yMax, pt.Y(), 1e-6)
}

func TestReproject_Polygon(t *testing.T) {
	ring := []float64{0, 0, 1, 0, 1, 1, 0, 0}
	poly := geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}).SetSRID(SRIDWGS84)

	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{poly}, SRIDWGS84))
	require.NoError(t, f.Reproject(SRIDWebMercator))

	out, ok := f.Geometry(0).(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, []int{len(ring)}, out.Ends())
	assert.InDelta(t, 111319.49, out.FlatCoords()[2], 0.1)
}
