package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/store"
)

var historyLimit int

var exportHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded reconciliation snapshots",
	Long:  "Lists snapshots saved by export check --record, newest first. Pass --job and --source to narrow the listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("history"); err != nil {
			return err
		}

		filter := store.SnapshotFilter{Source: exportSource, Limit: historyLimit}
		if exportJobPath != "" {
			job, err := loadJob()
			if err != nil {
				return err
			}
			filter.Job = job.Name
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		snaps, err := st.ListSnapshots(ctx, filter)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			zap.L().Info("no snapshots recorded")
			return nil
		}

		formatSnapshots(os.Stdout, snaps)
		return nil
	},
}

func formatSnapshots(out io.Writer, snaps []store.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tJOB\tSOURCE\tEXPECTED\tPRESENT\tMISSING\tCREATED")
	fmt.Fprintln(w, "--\t---\t------\t--------\t-------\t-------\t-------")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			truncateID(s.ID), truncate(s.Job, 30), s.Source,
			s.Expected, s.Present, s.Missing,
			s.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	exportHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of snapshots to show")

	exportCmd.AddCommand(exportHistoryCmd)
}
