package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect and reset job checkpoints",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the checkpoint of every job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			checkpoints, err := a.Store.Checkpoints().List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tSTATUS\tPROCESSED\tLAST KEY\tUPDATED")
			for _, cp := range checkpoints {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", cp.JobName, cp.Status, cp.ProcessedCount, cp.LastKey, cp.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var checkpointsResetCmd = &cobra.Command{
	Use:   "reset JOB",
	Short: "Delete a job's checkpoint so its next run starts over",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			// a running job would save its checkpoint again
			return a.Locked(ctx, args[0], func(ctx context.Context) error {
				if err := a.Store.Checkpoints().Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checkpoint of %s deleted\n", args[0])
				return nil
			})
		})
	},
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd, checkpointsResetCmd)
	rootCmd.AddCommand(checkpointsCmd)
}
