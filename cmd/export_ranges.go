package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/oappleby/plotsat/internal/reconcile"
)

var exportRangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Print resubmission ranges for unfinished partitions",
	Long:  "Reconciles the job and prints an export_ranges block ready to paste into a PlotToSat configuration, restarting each unfinished partition from the last plot row its export reached.",
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

		formatRanges(os.Stdout, reconcile.Ranges(report))
		return nil
	},
}

// formatRanges prints a completion report and the python-style dict
// PlotToSat reads resubmission ranges from: keys are (country, year) tuples,
// values (completed, total). The report lines are python comments so the
// whole output pastes into a PlotToSat configuration as-is.
func formatRanges(out io.Writer, ranges []reconcile.Range) {
	if len(ranges) == 0 {
		fmt.Fprintln(out, "# all partitions complete")
		fmt.Fprintln(out, "export_ranges = {}")
		return
	}

	p := message.NewPrinter(language.English)
	for _, r := range ranges {
		fmt.Fprintf(out, "# %s %d: ", r.Partition.Country, r.Partition.Year)
		p.Fprintf(out, "%d of %d plots exported\n", r.Completed, r.Total)
	}

	fmt.Fprint(out, "export_ranges = {")
	for i, r := range ranges {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		fmt.Fprintf(out, "('%s', %d): (%d, %d)", r.Partition.Country, r.Partition.Year, r.Completed, r.Total)
	}
	fmt.Fprintln(out, "}")
}

func init() {
	exportCmd.AddCommand(exportRangesCmd)
}
