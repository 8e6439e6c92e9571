package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/duplicates"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/models"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Detect duplicate affairs and queue them for review",
	Long: `Compare the affairs of each politician and queue likely duplicates for review.

With --auto-merge the CERTAIN pairs are merged immediately: sources and links move to the
surviving affair and the other one is deleted.

Examples:
  iris duplicates --dry-run
  iris duplicates --since 2024-01-01 --auto-merge`,
	Args: cobra.NoArgs,
	RunE: runDuplicates,
}

var (
	duplicatesSince       string
	duplicatesAutoMerge   bool
	duplicatesDryRun      bool
	duplicatesCertainOnly bool
	duplicatesResume      bool
)

func init() {
	duplicatesCmd.Flags().StringVar(&duplicatesSince, "since", "", "Only pairs with an affair created on or after this date")
	duplicatesCmd.Flags().BoolVar(&duplicatesAutoMerge, "auto-merge", false, "Merge CERTAIN pairs")
	duplicatesCmd.Flags().BoolVar(&duplicatesDryRun, "dry-run", false, "Report without queueing or merging")
	duplicatesCmd.Flags().BoolVar(&duplicatesCertainOnly, "certain-only", false, "Only report CERTAIN pairs")
	duplicatesCmd.Flags().BoolVar(&duplicatesResume, "resume", false, "Continue an interrupted auto-merge")
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	since, err := parseDay("since", duplicatesSince)
	if err != nil {
		return err
	}

	return runJob(cmd, duplicates.JobName, func(ctx context.Context, a *app.App) error {
		service, err := a.Duplicates(duplicatesDryRun)
		if err != nil {
			return jobs.Fatal(err)
		}

		report, err := service.Run(ctx, duplicates.RunOptions{
			Since:       since,
			CertainOnly: duplicatesCertainOnly,
			AutoMerge:   duplicatesAutoMerge,
			DryRun:      duplicatesDryRun,
			Resume:      duplicatesResume,
		})
		if report != nil {
			printPairs(cmd, report)
		}
		return err
	})
}

func printPairs(cmd *cobra.Command, report *duplicates.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d pairs, %d newly queued\n", len(report.Pairs), report.Queued)

	if len(report.Pairs) > 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LEFT\tRIGHT\tSCORE\tCONFIDENCE\tSIGNAL\tDAYS")
		for _, p := range report.Pairs {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n", p.LeftID, p.RightID, p.Score, p.Confidence, p.MatchedBy, days(p))
		}
		_ = tw.Flush()
	}

	printSummary(out, report.Summary)
}

func days(p models.DuplicatePair) string {
	if p.DaysApart == nil {
		return "-"
	}
	return fmt.Sprint(*p.DaysApart)
}
