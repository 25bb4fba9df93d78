package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage stored datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		datasets, err := st.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			fmt.Println("No datasets loaded yet")
			return nil
		}

		fmt.Printf("%-36s %-24s %-10s %-16s %8s %6s  %s\n",
			"ID", "Name", "Format", "Geometry", "Rows", "SRID", "Created")
		fmt.Println(strings.Repeat("-", 110))
		for _, ds := range datasets {
			fmt.Printf("%-36s %-24s %-10s %-16s %8d %6d  %s\n",
				ds.ID, ds.Name, ds.Format, ds.GeometryType,
				ds.RowCount, ds.SRID, ds.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var datasetsDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Delete a stored dataset and its features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.DeleteDataset(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("dropped %s\n", args[0])
		return nil
	},
}

func init() {
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsDropCmd)
	rootCmd.AddCommand(datasetsCmd)
}
