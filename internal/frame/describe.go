package frame

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Describe computes summary statistics for every numeric column, skipping
// null values. Columns with no numeric values are omitted.
func (f *Frame) Describe() []ColumnSummary {
	var out []ColumnSummary
	for _, c := range f.cols {
		if c.Kind != KindInt && c.Kind != KindFloat {
			continue
		}
		vals := make([]float64, 0, len(c.Values))
		for _, v := range c.Values {
			if x, ok := asFloat(v); ok {
				vals = append(vals, x)
			}
		}
		if len(vals) == 0 {
			continue
		}
		out = append(out, ColumnSummary{
			Name:  c.Name,
			Count: len(vals),
			Mean:  stat.Mean(vals, nil),
			Std:   stat.StdDev(vals, nil),
			Min:   floats.Min(vals),
			Max:   floats.Max(vals),
		})
	}
	return out
}
