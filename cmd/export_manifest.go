package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
)

var exportManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the expected chunk set for a job",
	Long:  "Derives the full expected chunk set from the job definition without contacting any destination, one canonical chunk id per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob()
		if err != nil {
			return err
		}

		chunks := manifest.Expected(job)
		formatManifest(os.Stdout, chunks)

		zap.L().Info("derived manifest",
			zap.String("job", job.Name),
			zap.Int("chunks", len(chunks)))
		return nil
	},
}

func formatManifest(out io.Writer, chunks []model.ChunkID) {
	for _, id := range chunks {
		fmt.Fprintln(out, id)
	}
}

func init() {
	exportCmd.AddCommand(exportManifestCmd)
}
