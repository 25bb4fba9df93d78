package plot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

func pointFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New("stations")
	require.NoError(t, f.AddColumn("riders", frame.KindInt, []any{int64(120), int64(45), nil}))
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{-122.27, 37.80}).SetSRID(4326),
		geom.NewPointFlat(geom.XY, []float64{-122.41, 37.77}).SetSRID(4326),
		nil,
	}, 4326))
	return f
}

func TestScatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, pointFrame(t), Options{Title: "BART stations"}))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "BART stations")
}

func TestScatter_WithValueColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, pointFrame(t), Options{ValueCol: "riders"}))

	html := buf.String()
	assert.Contains(t, html, "visualMap")
	// Default title falls back to the frame name.
	assert.Contains(t, html, "stations")
}

func TestScatter_MissingValueColumn(t *testing.T) {
	var buf bytes.Buffer
	err := Scatter(&buf, pointFrame(t), Options{ValueCol: "nope"})
	assert.Error(t, err)
}

func TestScatter_NoGeometry(t *testing.T) {
	f := frame.New("plain")
	require.NoError(t, f.AddColumn("a", frame.KindInt, []any{int64(1)}))

	var buf bytes.Buffer
	assert.Error(t, Scatter(&buf, f, Options{}))
}

func TestScatter_NoPoints(t *testing.T) {
	f := frame.New("lines")
	require.NoError(t, f.SetGeometry([]geom.T{
		geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
	}, 4326))

	var buf bytes.Buffer
	assert.Error(t, Scatter(&buf, f, Options{}))
}
