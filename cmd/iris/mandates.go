package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/mandates"
)

var mandatesCmd = &cobra.Command{
	Use:   "mandates",
	Short: "Close mandates that have ended",
	Long: `Close open mandates superseded by a newer mandate of the same office, mandates past
their term and senate seats at their series renewal. Mandates started before the Fifth
Republic or long past their term are closed and flagged for review.

Examples:
  iris mandates --dry-run
  iris mandates --as-of 2023-10-01`,
	Args: cobra.NoArgs,
	RunE: runMandates,
}

var (
	mandatesDryRun bool
	mandatesAsOf   string
)

func init() {
	mandatesCmd.Flags().BoolVar(&mandatesDryRun, "dry-run", false, "Plan closures without applying them")
	mandatesCmd.Flags().StringVar(&mandatesAsOf, "as-of", "", "Reconcile as of this date (default today)")
	rootCmd.AddCommand(mandatesCmd)
}

func runMandates(cmd *cobra.Command, _ []string) error {
	asOf, err := parseDay("as-of", mandatesAsOf)
	if err != nil {
		return err
	}

	opts := mandates.Options{DryRun: mandatesDryRun}
	if asOf != nil {
		opts.AsOf = *asOf
	}

	return runJob(cmd, "mandates", func(ctx context.Context, a *app.App) error {
		reconciler, err := a.Reconciler()
		if err != nil {
			return jobs.Fatal(err)
		}

		result, err := reconciler.Reconcile(ctx, opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d open mandates examined, %d closures", result.Examined, len(result.Closures))
		if !result.Applied && len(result.Closures) > 0 {
			fmt.Fprint(out, " (not applied)")
		}
		fmt.Fprintln(out)

		if len(result.Closures) == 0 {
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MANDATE\tPOLITICIAN\tTYPE\tEND\tSUPERSEDED BY\tREVIEW")
		for _, c := range result.Closures {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				c.MandateID, c.PoliticianID, c.Type, c.EndDate.Format(time.DateOnly), c.SupersededBy, c.ReviewReason)
		}
		return tw.Flush()
	})
}
