package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/oappleby/plotsat/internal/cluster"
	"github.com/oappleby/plotsat/internal/plotio"
)

var (
	clusterInput     string
	clusterOutput    string
	clusterEpsilon   float64
	clusterMinPoints int
	clusterSummary   bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster survey plots into dominant-forest-type groups",
	Long:  "Reads a plot table (CSV, XLSX or shapefile), runs DBSCAN over the plot coordinates, and writes the table back out with cluster_id and dominant_species columns appended.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cluster"); err != nil {
			return err
		}

		epsilon := clusterEpsilon
		if !cmd.Flags().Changed("epsilon") {
			epsilon = cfg.Cluster.Epsilon
		}
		minPoints := clusterMinPoints
		if !cmd.Flags().Changed("min-points") {
			minPoints = cfg.Cluster.MinPoints
		}
		if err := cluster.Validate(epsilon, minPoints); err != nil {
			return err
		}

		schema := plotio.Schema{
			IDColumn:  cfg.Input.IDColumn,
			XColumn:   cfg.Input.XColumn,
			YColumn:   cfg.Input.YColumn,
			Mode:      cfg.Input.CompositionMode,
			Tolerance: cfg.Cluster.ProportionTolerance,
		}
		table, err := plotio.ReadPlots(clusterInput, schema)
		if err != nil {
			return err
		}

		res, err := cluster.Run(table.Plots, cluster.Params{Epsilon: epsilon, MinPoints: minPoints})
		if err != nil {
			return err
		}

		if err := plotio.WriteLabeled(clusterOutput, table, res); err != nil {
			return err
		}

		zap.L().Info("clustered plots",
			zap.String("input", clusterInput),
			zap.String("output", clusterOutput),
			zap.Float64("epsilon", epsilon),
			zap.Int("min_points", minPoints),
			zap.Int("plots", len(table.Plots)),
			zap.Int("clusters", len(res.Clusters)),
			zap.Int("noise", res.NoiseCount()))

		if clusterSummary {
			formatClusterSummary(os.Stdout, res)
		}
		return nil
	},
}

// formatClusterSummary prints a per-cluster table followed by a totals line.
func formatClusterSummary(out io.Writer, res *cluster.Result) {
	p := message.NewPrinter(language.English)

	if len(res.Clusters) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLUSTER\tPLOTS\tDOMINANT\tBBOX")
		fmt.Fprintln(w, "-------\t-----\t--------\t----")
		for _, c := range res.Clusters {
			fmt.Fprintf(w, "%d\t", c.ClusterID)
			p.Fprintf(w, "%d\t", c.Plots)
			fmt.Fprintf(w, "%s\t(%.6g, %.6g) .. (%.6g, %.6g)\n", c.DominantSpecies, c.MinX, c.MinY, c.MaxX, c.MaxY)
		}
		w.Flush()
	}

	p.Fprintf(out, "%d plots in %d clusters, %d noise\n",
		len(res.Labels), len(res.Clusters), res.NoiseCount())
}

func init() {
	clusterCmd.Flags().StringVar(&clusterInput, "input", "", "plot table to read: .csv, .xlsx or .shp (required)")
	clusterCmd.Flags().StringVar(&clusterOutput, "output", "", "labeled CSV to write (required)")
	clusterCmd.Flags().Float64Var(&clusterEpsilon, "epsilon", 0, "DBSCAN neighborhood radius in coordinate units (falls back to cluster.epsilon)")
	clusterCmd.Flags().IntVar(&clusterMinPoints, "min-points", 0, "minimum neighborhood size for a core plot (falls back to cluster.min_points)")
	clusterCmd.Flags().BoolVar(&clusterSummary, "summary", false, "print a per-cluster summary table")
	_ = clusterCmd.MarkFlagRequired("input")
	_ = clusterCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(clusterCmd)
}
