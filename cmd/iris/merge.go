package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/merging"
)

var mergeCmd = &cobra.Command{
	Use:   "merge SURVIVOR LOSER",
	Short: "Merge one affair into another",
	Long: `Move the sources and links of LOSER to SURVIVOR and delete LOSER. Sources whose URL
SURVIVOR already cites are dropped. Pending reviews naming LOSER are resolved.

Examples:
  iris merge 6f1c... 9a2b... --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

var mergeDryRun bool

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Show the plan without applying it")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	return runJob(cmd, "merge", func(ctx context.Context, a *app.App) error {
		engine, err := a.MergeEngine()
		if err != nil {
			return jobs.Fatal(err)
		}

		result, err := engine.MergeInto(ctx, args[0], args[1], merging.Options{DryRun: mergeDryRun})
		if err != nil {
			return err
		}

		plan := result.Plan
		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "survivor\t%s\n", plan.SurvivorID)
		fmt.Fprintf(tw, "deleted\t%s\n", plan.LoserID)
		fmt.Fprintf(tw, "sources moved\t%d (%d already cited)\n", len(plan.MoveSources), len(plan.SkipSources))
		fmt.Fprintf(tw, "links moved\t%d (%d dropped)\n", len(plan.MoveLinks), len(plan.SkipLinks))
		fmt.Fprintf(tw, "sources after merge\t%d\n", plan.SourceCount)
		fmt.Fprintf(tw, "applied\t%t\n", result.Applied)
		return tw.Flush()
	})
}
