package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "plotsat",
	Short: "Forest plot clustering and PlotToSat export reconciliation",
	Long:  "Clusters geolocated forest survey plots with DBSCAN, and reconciles PlotToSat satellite export jobs against their destinations to find missing chunks.",
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
