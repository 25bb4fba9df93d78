package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestAddColumn_RowCountMismatch(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1), int64(2)}))

	err := f.AddColumn("b", KindInt, []any{int64(1)})
	assert.Error(t, err)
}

func TestAddColumn_Duplicate(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1)}))

	err := f.AddColumn("a", KindInt, []any{int64(2)})
	assert.Error(t, err)
}

func TestDropColumn(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1)}))
	require.NoError(t, f.AddColumn("b", KindString, []any{"x"}))

	require.NoError(t, f.DropColumn("a"))
	assert.Equal(t, []string{"b"}, f.ColumnNames())

	assert.Error(t, f.DropColumn("a"))
}

func TestPointsFromXY(t *testing.T) {
	f := New("stations")
	require.NoError(t, f.AddColumn("lon", KindFloat, []any{-122.27, -122.42, nil}))
	require.NoError(t, f.AddColumn("lat", KindFloat, []any{37.80, 37.77, 37.0}))

	require.NoError(t, f.PointsFromXY("lon", "lat", SRIDWGS84))

	assert.True(t, f.HasGeometry())
	assert.Equal(t, SRIDWGS84, f.SRID())

	pt, ok := f.Geometry(0).(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -122.27, pt.X(), 1e-9)
	assert.InDelta(t, 37.80, pt.Y(), 1e-9)
	assert.Equal(t, SRIDWGS84, pt.SRID())

	// Row with a null coordinate has no geometry.
	assert.Nil(t, f.Geometry(2))
}

func TestPointsFromXY_StringCoordinates(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("x", KindString, []any{"1.5"}))
	require.NoError(t, f.AddColumn("y", KindString, []any{"2.5"}))

	require.NoError(t, f.PointsFromXY("x", "y", SRIDWGS84))
	pt := f.Geometry(0).(*geom.Point)
	assert.InDelta(t, 1.5, pt.X(), 1e-9)
	assert.InDelta(t, 2.5, pt.Y(), 1e-9)
}

func TestPointsFromXY_MissingColumn(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("x", KindFloat, []any{1.0}))

	assert.Error(t, f.PointsFromXY("x", "nope", SRIDWGS84))
}

func TestHead(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1), int64(2), int64(3)}))
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{0, 0}),
		geom.NewPointFlat(geom.XY, []float64{1, 1}),
		geom.NewPointFlat(geom.XY, []float64{2, 2}),
	}, SRIDWGS84))

	h := f.Head(2)
	assert.Equal(t, 2, h.NumRows())
	assert.True(t, h.HasGeometry())

	// Larger n copies the whole frame.
	assert.Equal(t, 3, f.Head(10).NumRows())
}

func TestRow_OmitsNulls(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1), nil}))
	require.NoError(t, f.AddColumn("b", KindString, []any{"x", "y"}))

	assert.Equal(t, map[string]any{"a": int64(1), "b": "x"}, f.Row(0))
	assert.Equal(t, map[string]any{"b": "y"}, f.Row(1))
}

func TestBounds(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{-10, 5}),
		nil,
		geom.NewPointFlat(geom.XY, []float64{20, -3}),
	}, SRIDWGS84))

	b := f.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, -10.0, b.Min(0))
	assert.Equal(t, -3.0, b.Min(1))
	assert.Equal(t, 20.0, b.Max(0))
	assert.Equal(t, 5.0, b.Max(1))
}

func TestBounds_NoGeometry(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("a", KindInt, []any{int64(1)}))
	assert.Nil(t, f.Bounds())
}

func TestGeometryCounts(t *testing.T) {
	f := New("test")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{0, 0}),
		geom.NewPointFlat(geom.XY, []float64{1, 1}),
		nil,
	}, SRIDWGS84))

	counts := f.GeometryCounts()
	assert.Equal(t, 2, counts["Point"])
	assert.Equal(t, 1, counts["null"])
}

func TestDescribe(t *testing.T) {
	f := New("test")
	require.NoError(t, f.AddColumn("v", KindFloat, []any{1.0, 2.0, 3.0, nil}))
	require.NoError(t, f.AddColumn("s", KindString, []any{"a", "b", "c", "d"}))

	summaries := f.Describe()
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "v", s.Name)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Std, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
}
