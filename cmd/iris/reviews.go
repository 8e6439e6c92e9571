package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Work the duplicate review queue",
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending duplicate reviews, strongest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			reviews, err := a.Store.Reviews().ListPending(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLEFT\tRIGHT\tSCORE\tCONFIDENCE")
			for _, r := range reviews {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", r.ID, r.LeftID, r.RightID, r.Score, r.Confidence)
			}
			return tw.Flush()
		})
	},
}

var reviewsDismissCmd = &cobra.Command{
	Use:   "dismiss ID",
	Short: "Dismiss a pending review without merging",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			if err := a.Store.Reviews().Dismiss(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "review %s dismissed\n", args[0])
			return nil
		})
	},
}

func init() {
	reviewsCmd.AddCommand(reviewsListCmd, reviewsDismissCmd)
	rootCmd.AddCommand(reviewsCmd)
}
