package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

const stationsCSV = `X,Y,ID,Address,Zone
-122.27,37.80,12TH,1245 Broadway,1
-122.41,37.77,CIVC,1150 Market St,2
-122.39,37.79,EMBR,298 Market St,
`

func TestReadCSV_PointsFromXY(t *testing.T) {
	f, err := ReadCSV(context.Background(), strings.NewReader(stationsCSV), CSVOptions{
		Name:    "stations",
		XColumn: "X",
		YColumn: "Y",
		SRID:    frame.SRIDWGS84,
	})
	require.NoError(t, err)

	assert.Equal(t, "stations", f.Name())
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"X", "Y", "ID", "Address", "Zone"}, f.ColumnNames())

	x, ok := f.Column("X")
	require.True(t, ok)
	assert.Equal(t, frame.KindFloat, x.Kind)

	zone, ok := f.Column("Zone")
	require.True(t, ok)
	assert.Equal(t, frame.KindInt, zone.Kind)
	assert.Equal(t, int64(1), zone.Values[0])
	assert.Nil(t, zone.Values[2])

	require.True(t, f.HasGeometry())
	pt, ok := f.Geometry(0).(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -122.27, pt.X(), 1e-9)
	assert.InDelta(t, 37.80, pt.Y(), 1e-9)
	assert.Equal(t, frame.SRIDWGS84, pt.SRID())
}

func TestReadCSV_NoGeometryColumns(t *testing.T) {
	f, err := ReadCSV(context.Background(), strings.NewReader("a,b\n1,x\n"), CSVOptions{Name: "t"})
	require.NoError(t, err)
	assert.False(t, f.HasGeometry())
	assert.Equal(t, 1, f.NumRows())
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{Name: "t"})
	assert.Error(t, err)
}

func TestReadCSV_Delimiter(t *testing.T) {
	f, err := ReadCSV(context.Background(), strings.NewReader("a|b\n1|2\n"), CSVOptions{
		Name:      "t",
		Delimiter: '|',
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.ColumnNames())
}

func TestReadCSV_RaggedRows(t *testing.T) {
	f, err := ReadCSV(context.Background(), strings.NewReader("a,b\n1,2\n3\n"), CSVOptions{Name: "t"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumRows())

	b, ok := f.Column("b")
	require.True(t, ok)
	assert.Nil(t, b.Values[1])
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader(stationsCSV), CSVOptions{Name: "t"})
	assert.Error(t, err)
}
