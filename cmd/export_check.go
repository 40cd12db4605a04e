package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/oappleby/plotsat/internal/reconcile"
	"github.com/oappleby/plotsat/internal/store"
)

var (
	checkRecord bool
	checkJSON   bool
)

var exportCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "List a destination and report missing chunks",
	Long:  "Derives the expected chunk set from the job definition, lists the chunk files present at the destination, and reports every expected chunk that is missing. The destination is never modified.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		job, err := loadJob()
		if err != nil {
			return err
		}
		l, err := buildLister(job)
		if err != nil {
			return err
		}

		report, err := reconcile.Reconcile(ctx, job, l)
		if err != nil {
			return err
		}

		if checkRecord {
			if err := recordSnapshot(ctx, report); err != nil {
				return err
			}
		}

		if checkJSON {
			raw, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return eris.Wrap(err, "check: marshal report")
			}
			fmt.Println(string(raw))
			return nil
		}

		formatReport(os.Stdout, report)
		return nil
	},
}

// recordSnapshot saves the report to the history store.
func recordSnapshot(ctx context.Context, report *reconcile.Report) error {
	if err := cfg.Validate("history"); err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.SaveSnapshot(ctx, report)
	if err != nil {
		return err
	}
	zap.L().Info("recorded snapshot",
		zap.String("id", snap.ID),
		zap.String("job", snap.Job),
		zap.Int("missing", snap.Missing))
	return nil
}

// formatReport prints per-partition progress followed by the missing chunks.
func formatReport(out io.Writer, report *reconcile.Report) {
	p := message.NewPrinter(language.English)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTITION\tEXPECTED\tPRESENT\tMISSING\tCOMPLETED\tTOTAL\tGAPS")
	fmt.Fprintln(w, "---------\t--------\t-------\t-------\t---------\t-----\t----")
	for _, prog := range report.Partitions {
		// The year must stay ungrouped, so only counts go through the printer.
		fmt.Fprintf(w, "%s\t", prog.Partition)
		p.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\n",
			prog.Expected, prog.Present, prog.Expected-prog.Present,
			prog.CompletedPlots, prog.TotalPlots, prog.Gaps)
	}
	w.Flush()

	p.Fprintf(out, "\n%d of %d chunks missing\n", len(report.Missing), report.Expected)
	if len(report.Missing) > 0 {
		fmt.Fprintln(out, "\nMissing chunks:")
		for _, id := range report.Missing {
			fmt.Fprintf(out, "  %s\n", id)
		}
	}
}

func init() {
	exportCheckCmd.Flags().BoolVar(&checkRecord, "record", false, "save the outcome to the snapshot history store")
	exportCheckCmd.Flags().BoolVar(&checkJSON, "json", false, "print the report as JSON instead of a table")

	exportCmd.AddCommand(exportCheckCmd)
}
