package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the migrations in DB_MIGRATION_FOLDER_PATH up to DB_MIGRATION_VERSION, or the
latest one when it is 0. A failed migration is rolled back to the previous version unless
DB_MIGRATION_AUTO_ROLLBACK is false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, app.Options{Migrate: true, SkipStore: true}, func(context.Context, *app.App) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
