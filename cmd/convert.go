package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/basinlabs/geoframe/internal/export"
	"github.com/basinlabs/geoframe/internal/frame"
	"github.com/basinlabs/geoframe/internal/store"
)

var convertCmd = &cobra.Command{
	Use:   "convert <id>",
	Short: "Export a stored dataset to GeoJSON, CSV, or Parquet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("to")
		outPath, _ := cmd.Flags().GetString("output")
		srid, _ := cmd.Flags().GetInt("srid")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		f, err := st.LoadFrame(ctx, args[0], store.FeatureFilter{})
		if err != nil {
			return err
		}

		if srid != 0 && srid != f.SRID() {
			if err := f.Reproject(srid); err != nil {
				return err
			}
		}

		var out io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			file, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "convert: create %s", outPath)
			}
			defer func() { _ = file.Close() }()
			out = file
		}

		if err := writeFrame(out, f, format); err != nil {
			return err
		}
		if outPath != "" {
			fmt.Printf("wrote %d features to %s\n", f.NumRows(), outPath)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("to", "geojson", "output format: geojson, csv, parquet")
	convertCmd.Flags().StringP("output", "o", "", "output path (default: stdout)")
	convertCmd.Flags().Int("srid", 0, "reproject before export (4326 or 3857)")
	rootCmd.AddCommand(convertCmd)
}

func writeFrame(w io.Writer, f *frame.Frame, format string) error {
	switch format {
	case "geojson":
		return export.WriteGeoJSON(w, f)
	case "csv":
		return export.WriteCSV(w, f)
	case "parquet":
		return export.WriteParquet(w, f)
	default:
		return eris.Errorf("convert: unsupported format %q", format)
	}
}
