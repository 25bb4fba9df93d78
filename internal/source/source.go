// Package source reads geospatial sources (coordinate CSV/XLSX, shapefiles,
// GeoJSON, KML) into frames.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/basinlabs/geoframe/internal/fetch"
	"github.com/basinlabs/geoframe/internal/frame"
)

// Format identifies a supported source format.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatXLSX      Format = "xlsx"
	FormatShapefile Format = "shapefile"
	FormatGeoJSON   Format = "geojson"
	FormatKML       Format = "kml"
)

// Options configures the dispatching reader.
type Options struct {
	Format   Format // empty = detect from extension
	Name     string // frame name; default is the file base name
	XColumn  string // CSV/XLSX: longitude / x column
	YColumn  string // CSV/XLSX: latitude / y column
	SRID     int    // CSV/XLSX/shapefile: coordinate system (default 4326)
	Sheet    string // XLSX: sheet name (default first sheet)
	Encoding string // shapefile: DBF encoding ("latin1" or "")
}

// Detect returns the format for a path based on its extension. A .zip is
// assumed to be a zipped shapefile, the common distribution form.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".shp", ".zip":
		return FormatShapefile, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".kml":
		return FormatKML, nil
	default:
		return "", eris.Errorf("source: cannot detect format of %q", path)
	}
}

// Read loads the file at path into a frame, dispatching on format. Zipped
// shapefiles are extracted to a temp directory first.
func Read(ctx context.Context, path string, opts Options) (*frame.Frame, error) {
	format := opts.Format
	if format == "" {
		detected, err := Detect(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if opts.SRID == 0 {
		opts.SRID = frame.SRIDWGS84
	}

	zap.L().Debug("source: reading",
		zap.String("path", path),
		zap.String("format", string(format)),
	)

	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(ctx, f, CSVOptions{Name: opts.Name, XColumn: opts.XColumn, YColumn: opts.YColumn, SRID: opts.SRID})

	case FormatXLSX:
		return ReadXLSX(path, XLSXOptions{Name: opts.Name, SheetName: opts.Sheet, XColumn: opts.XColumn, YColumn: opts.YColumn, SRID: opts.SRID})

	case FormatShapefile:
		shpPath := path
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			extracted, err := extractZippedShapefile(path)
			if err != nil {
				return nil, err
			}
			shpPath = extracted
		}
		return ReadShapefile(shpPath, ShapefileOptions{Name: opts.Name, SRID: opts.SRID, Encoding: opts.Encoding})

	case FormatGeoJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer func() { _ = f.Close() }()
		return ReadGeoJSON(f, opts.Name)

	case FormatKML:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer func() { _ = f.Close() }()
		return ReadKML(f, opts.Name)

	default:
		return nil, eris.Errorf("source: unsupported format %q", format)
	}
}

// extractZippedShapefile unpacks a zip archive and returns the .shp path.
func extractZippedShapefile(zipPath string) (string, error) {
	destDir, err := os.MkdirTemp("", "geoframe-shp-*")
	if err != nil {
		return "", eris.Wrap(err, "source: create temp dir")
	}
	paths, err := fetch.ExtractZip(zipPath, destDir)
	if err != nil {
		return "", err
	}
	shpPath, err := fetch.FindShapefile(paths)
	if err != nil {
		return "", err
	}
	return shpPath, nil
}
