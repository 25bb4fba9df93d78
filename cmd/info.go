package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/basinlabs/geoframe/internal/export"
	"github.com/basinlabs/geoframe/internal/frame"
	"github.com/basinlabs/geoframe/internal/store"
)

var infoCmd = &cobra.Command{
	Use:   "info <id|path>",
	Short: "Show metadata and a preview of a dataset or source file",
	Long: `Shows metadata for a stored dataset by id, or for a local file or URL
without loading it into the store first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		head, _ := cmd.Flags().GetInt("head")
		describe, _ := cmd.Flags().GetBool("describe")

		if isSourceArg(args[0]) {
			f, err := readSourceArg(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Source:   %s\n", args[0])
			fmt.Printf("Rows:     %d\n", f.NumRows())
			fmt.Printf("Columns:  %s\n", describeColumns(f.Columns()))
			if f.HasGeometry() {
				fmt.Printf("Geometry: EPSG:%d\n", f.SRID())
			}
			return printFrameDetails(cmd, f, head, describe)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Dataset:  %s (%s)\n", ds.Name, ds.ID)
		fmt.Printf("Source:   %s\n", ds.Source)
		fmt.Printf("Format:   %s\n", ds.Format)
		fmt.Printf("Geometry: %s (EPSG:%d)\n", ds.GeometryType, ds.SRID)
		fmt.Printf("Rows:     %d\n", ds.RowCount)
		parts := make([]string, len(ds.Columns))
		for i, c := range ds.Columns {
			parts[i] = fmt.Sprintf("%s(%s)", c.Name, c.Kind)
		}
		fmt.Printf("Columns:  %s\n", strings.Join(parts, ", "))

		if head <= 0 && !describe {
			return nil
		}

		filter := store.FeatureFilter{}
		if head > 0 && !describe {
			filter.Limit = head
		}
		f, err := st.LoadFrame(ctx, ds.ID, filter)
		if err != nil {
			return err
		}
		return printFrameDetails(cmd, f, head, describe)
	},
}

func init() {
	infoCmd.Flags().Int("head", 0, "print the first N rows as CSV")
	infoCmd.Flags().Bool("describe", false, "print summary statistics for numeric columns")
	rootCmd.AddCommand(infoCmd)
}

// describeColumns formats columns as "name(kind), ...".
func describeColumns(cols []frame.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s(%s)", c.Name, c.Kind)
	}
	return strings.Join(parts, ", ")
}

// printFrameDetails prints bounds, geometry counts, and the optional
// describe table and head preview for a loaded frame.
func printFrameDetails(cmd *cobra.Command, f *frame.Frame, head int, describe bool) error {
	if b := f.Bounds(); b != nil {
		fmt.Printf("Bounds:   [%g, %g, %g, %g]\n",
			b.Min(0), b.Min(1), b.Max(0), b.Max(1))
	}
	counts := f.GeometryCounts()
	if len(counts) > 0 {
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
		}
		fmt.Printf("Shapes:   %s\n", strings.Join(parts, " "))
	}

	if describe {
		fmt.Println()
		fmt.Printf("%-24s %8s %14s %14s %14s %14s\n",
			"Column", "Count", "Mean", "Std", "Min", "Max")
		for _, s := range f.Describe() {
			fmt.Printf("%-24s %8d %14.4f %14.4f %14.4f %14.4f\n",
				s.Name, s.Count, s.Mean, s.Std, s.Min, s.Max)
		}
	}

	if head > 0 {
		fmt.Println()
		if err := export.WriteCSV(cmd.OutOrStdout(), f.Head(head)); err != nil {
			return err
		}
	}
	return nil
}
