// Package plot renders point datasets as standalone HTML scatter charts.
package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

// Options configures the scatter rendering.
type Options struct {
	Title      string
	ValueCol   string // optional numeric column driving the color scale
	SymbolSize int    // default 5
	Width      string // default "900px"
	Height     string // default "900px"
}

// viridisColors is the color ramp for the value scale.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// Scatter renders the frame's point geometries to w as a standalone HTML
// chart. Non-point and nil geometries are skipped.
func Scatter(w io.Writer, f *frame.Frame, options Options) error {
	if !f.HasGeometry() {
		return eris.New("plot: frame has no geometry")
	}
	if options.SymbolSize == 0 {
		options.SymbolSize = 5
	}
	if options.Width == "" {
		options.Width = "900px"
	}
	if options.Height == "" {
		options.Height = "900px"
	}
	if options.Title == "" {
		options.Title = f.Name()
	}

	var valueCol *frame.Column
	if options.ValueCol != "" {
		c, ok := f.Column(options.ValueCol)
		if !ok {
			return eris.Errorf("plot: no column %q", options.ValueCol)
		}
		valueCol = c
	}

	data := make([]opts.ScatterData, 0, f.NumRows())
	var minX, maxX, minY, maxY float64
	maxValue := 0.0
	first := true

	for i := 0; i < f.NumRows(); i++ {
		pt, ok := f.Geometry(i).(*geom.Point)
		if !ok || pt == nil {
			continue
		}
		x, y := pt.X(), pt.Y()
		if first {
			minX, maxX, minY, maxY = x, x, y, y
			first = false
		} else {
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}

		if valueCol != nil {
			v := numericValue(valueCol.Values[i])
			if v > maxValue {
				maxValue = v
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, v}})
		} else {
			data = append(data, opts.ScatterData{Value: []interface{}{x, y}})
		}
	}
	if len(data) == 0 {
		return eris.New("plot: no point geometries to plot")
	}

	// Pad the extent so edge points stay visible.
	padX := (maxX - minX) * 0.05
	padY := (maxY - minY) * 0.05
	if padX == 0 {
		padX = 1.0
	}
	if padY == 0 {
		padY = 1.0
	}

	scatter := charts.NewScatter()
	globalOpts := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: options.Title,
			Width:     options.Width,
			Height:    options.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    options.Title,
			Subtitle: fmt.Sprintf("features=%d srid=%d", len(data), f.SRID()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minX - padX, Max: maxX + padX}),
		charts.WithYAxisOpts(opts.YAxis{Min: minY - padY, Max: maxY + padY}),
	}
	if valueCol != nil {
		if maxValue == 0 {
			maxValue = 1
		}
		globalOpts = append(globalOpts, charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxValue),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}))
	}
	scatter.SetGlobalOptions(globalOpts...)

	scatter.AddSeries(f.Name(), data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: options.SymbolSize}),
	)

	if err := scatter.Render(w); err != nil {
		return eris.Wrap(err, "plot: render chart")
	}
	return nil
}

func numericValue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return 0
	}
}
