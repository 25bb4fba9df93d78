// Package store persists loaded datasets and their features to SQLite or
// PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/basinlabs/geoframe/internal/frame"
)

// ColumnDef records one attribute column of a stored dataset.
type ColumnDef struct {
	Name string     `json:"name"`
	Kind frame.Kind `json:"kind"`
}

// Dataset is the stored metadata for one loaded source.
type Dataset struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Source       string      `json:"source"`
	Format       string      `json:"format"`
	SRID         int         `json:"srid"`
	GeometryType string      `json:"geometry_type"`
	RowCount     int         `json:"row_count"`
	Columns      []ColumnDef `json:"columns"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// FeatureFilter narrows feature reads.
type FeatureFilter struct {
	BBox   *geom.Bounds // optional bounding box in the dataset's SRID
	Limit  int
	Offset int
}

// Store is the persistence interface for datasets and their features.
type Store interface {
	CreateDataset(ctx context.Context, name, source, format string, f *frame.Frame) (*Dataset, error)
	GetDataset(ctx context.Context, id string) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]Dataset, error)
	DeleteDataset(ctx context.Context, id string) error

	// LoadFrame rebuilds the frame for a dataset, optionally filtered.
	LoadFrame(ctx context.Context, id string, filter FeatureFilter) (*frame.Frame, error)

	Migrate(ctx context.Context) error
	Close() error
}

// datasetFromFrame derives the stored metadata from a frame.
func datasetFromFrame(id, name, source, format string, f *frame.Frame, now time.Time) *Dataset {
	cols := make([]ColumnDef, 0, f.NumCols())
	for _, c := range f.Columns() {
		cols = append(cols, ColumnDef{Name: c.Name, Kind: c.Kind})
	}
	return &Dataset{
		ID:           id,
		Name:         name,
		Source:       source,
		Format:       format,
		SRID:         f.SRID(),
		GeometryType: dominantGeometryType(f),
		RowCount:     f.NumRows(),
		Columns:      cols,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// dominantGeometryType picks the most frequent non-null geometry type.
func dominantGeometryType(f *frame.Frame) string {
	best, bestCount := "", 0
	for name, count := range f.GeometryCounts() {
		if name == "null" {
			continue
		}
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best
}

// encodeRow marshals one frame row for storage: properties JSON and EWKB
// geometry (nil for rows without a shape).
func encodeRow(f *frame.Frame, i int) (propsJSON []byte, geomWKB []byte, err error) {
	propsJSON, err = json.Marshal(f.Row(i))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: marshal properties for row %d", i)
	}
	if g := f.Geometry(i); g != nil {
		geomWKB, err = ewkb.Marshal(g, ewkb.NDR)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "store: encode geometry for row %d", i)
		}
	}
	return propsJSON, geomWKB, nil
}

// frameFromStored rebuilds a frame from dataset metadata and stored rows.
func frameFromStored(ds *Dataset, props [][]byte, geoms [][]byte) (*frame.Frame, error) {
	f := frame.New(ds.Name)

	decoded := make([]map[string]any, len(props))
	for i, p := range props {
		var m map[string]any
		if err := json.Unmarshal(p, &m); err != nil {
			return nil, eris.Wrapf(err, "store: decode properties for row %d", i)
		}
		decoded[i] = m
	}

	for _, col := range ds.Columns {
		values := make([]any, len(decoded))
		for i, m := range decoded {
			values[i] = restoreValue(col.Kind, m[col.Name])
		}
		if err := f.AddColumn(col.Name, col.Kind, values); err != nil {
			return nil, err
		}
	}

	gs := make([]geom.T, len(geoms))
	for i, raw := range geoms {
		if len(raw) == 0 {
			continue
		}
		g, err := ewkb.Unmarshal(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "store: decode geometry for row %d", i)
		}
		gs[i] = g
	}
	if err := f.SetGeometry(gs, ds.SRID); err != nil {
		return nil, err
	}
	return f, nil
}

// restoreValue undoes JSON number widening for stored int columns.
func restoreValue(kind frame.Kind, v any) any {
	if v == nil {
		return nil
	}
	if kind == frame.KindInt {
		if x, ok := v.(float64); ok {
			return int64(x)
		}
	}
	return v
}
