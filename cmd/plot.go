package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/basinlabs/geoframe/internal/frame"
	"github.com/basinlabs/geoframe/internal/plot"
	"github.com/basinlabs/geoframe/internal/store"
)

var plotCmd = &cobra.Command{
	Use:   "plot <id|path>",
	Short: "Render a point dataset or source file as an HTML scatter chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		outPath, _ := cmd.Flags().GetString("output")
		valueCol, _ := cmd.Flags().GetString("value-col")
		title, _ := cmd.Flags().GetString("title")
		symbolSize, _ := cmd.Flags().GetInt("symbol-size")

		var f *frame.Frame
		if isSourceArg(args[0]) {
			var err error
			f, err = readSourceArg(ctx, args[0])
			if err != nil {
				return err
			}
		} else {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			f, err = st.LoadFrame(ctx, args[0], store.FeatureFilter{})
			if err != nil {
				return err
			}
		}

		file, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "plot: create %s", outPath)
		}
		defer func() { _ = file.Close() }()

		if err := plot.Scatter(file, f, plot.Options{
			Title:      title,
			ValueCol:   valueCol,
			SymbolSize: symbolSize,
		}); err != nil {
			return err
		}

		fmt.Printf("wrote chart to %s\n", outPath)
		return nil
	},
}

func init() {
	plotCmd.Flags().StringP("output", "o", "plot.html", "output HTML path")
	plotCmd.Flags().String("value-col", "", "numeric column driving the color scale")
	plotCmd.Flags().String("title", "", "chart title (default: dataset name)")
	plotCmd.Flags().Int("symbol-size", 0, "point symbol size")
	rootCmd.AddCommand(plotCmd)
}
