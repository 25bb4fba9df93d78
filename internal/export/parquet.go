package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/basinlabs/geoframe/internal/frame"
)

// WriteParquet writes the frame as a single-record Parquet file. Attribute
// columns map to arrow primitives; the geometry column is EWKB binary,
// which keeps the SRID inside the file.
func WriteParquet(w io.Writer, f *frame.Frame) error {
	pool := memory.NewGoAllocator()

	fields := make([]arrow.Field, 0, f.NumCols()+1)
	for _, c := range f.Columns() {
		fields = append(fields, arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true})
	}
	if f.HasGeometry() {
		fields = append(fields, arrow.Field{Name: "geometry", Type: arrow.BinaryTypes.Binary, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for colIdx, c := range f.Columns() {
		if err := appendColumn(builder.Field(colIdx), c); err != nil {
			return err
		}
	}
	if f.HasGeometry() {
		geomBuilder, ok := builder.Field(f.NumCols()).(*array.BinaryBuilder)
		if !ok {
			return eris.New("export: geometry builder type mismatch")
		}
		for i := 0; i < f.NumRows(); i++ {
			g := f.Geometry(i)
			if g == nil {
				geomBuilder.AppendNull()
				continue
			}
			data, err := ewkb.Marshal(g, ewkb.NDR)
			if err != nil {
				return eris.Wrapf(err, "export: encode geometry for row %d", i)
			}
			geomBuilder.Append(data)
		}
	}

	rec := builder.NewRecordBatch()
	defer rec.Release()

	writer, err := pqarrow.NewFileWriter(schema, w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		return eris.Wrap(err, "export: create parquet writer")
	}

	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return eris.Wrap(err, "export: write parquet record")
	}
	if err := writer.Close(); err != nil {
		return eris.Wrap(err, "export: close parquet writer")
	}
	return nil
}

func arrowType(kind frame.Kind) arrow.DataType {
	switch kind {
	case frame.KindInt:
		return arrow.PrimitiveTypes.Int64
	case frame.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case frame.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// appendColumn feeds one frame column into its arrow builder.
func appendColumn(b array.Builder, c frame.Column) error {
	switch builder := b.(type) {
	case *array.Int64Builder:
		for _, v := range c.Values {
			if x, ok := v.(int64); ok {
				builder.Append(x)
			} else {
				builder.AppendNull()
			}
		}
	case *array.Float64Builder:
		for _, v := range c.Values {
			switch x := v.(type) {
			case float64:
				builder.Append(x)
			case int64:
				builder.Append(float64(x))
			default:
				builder.AppendNull()
			}
		}
	case *array.BooleanBuilder:
		for _, v := range c.Values {
			if x, ok := v.(bool); ok {
				builder.Append(x)
			} else {
				builder.AppendNull()
			}
		}
	case *array.StringBuilder:
		for _, v := range c.Values {
			if v == nil {
				builder.AppendNull()
				continue
			}
			builder.Append(formatValue(v))
		}
	default:
		return eris.Errorf("export: unsupported builder for column %q", c.Name)
	}
	return nil
}
