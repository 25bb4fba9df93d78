package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basinlabs/geoframe/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geoframe",
	Short: "Load, inspect, and export geospatial datasets",
	Long:  "Loads coordinate CSVs, shapefiles, GeoJSON, KML, and ArcGIS feature services into a local dataset store, with export to GeoJSON, CSV, and Parquet.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
