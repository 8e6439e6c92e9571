package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/linking"
	"github.com/Ramsey-B/iris/pkg/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync --source SOURCE (--input FILE | --url URL [--ids ID,...])",
	Short: "Link one source's records to canonical politicians",
	Long: `Decode a provider document and link every record to a politician.

Records already linked are skipped, homonyms are separated by birth and death dates and
records that match nobody are reported, or created with --create-missing.

Examples:
  iris sync --source SENAT --input senateurs.json
  iris sync --source WIKIDATA --url 'https://query.wikidata.org/sparql?format=json&query=...'
  iris sync --source ASSEMBLEE_NATIONALE --url 'https://example.org/acteurs?uid={ids}' --ids PA1,PA2 --resume`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncSource        string
	syncInput         string
	syncURL           string
	syncIDs           []string
	syncResume        bool
	syncCreateMissing bool
	syncDryRun        bool
)

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "Source tag, e.g. SENAT (required)")
	syncCmd.Flags().StringVar(&syncInput, "input", "", "Provider document on disk")
	syncCmd.Flags().StringVar(&syncURL, "url", "", "Provider URL, a template containing {ids} when --ids is set")
	syncCmd.Flags().StringSliceVar(&syncIDs, "ids", nil, "Identifiers fetched in bounded batches through --url")
	syncCmd.Flags().BoolVar(&syncResume, "resume", false, "Continue from the last checkpoint")
	syncCmd.Flags().BoolVar(&syncCreateMissing, "create-missing", false, "Create politicians for records with no name match")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Match and report without writing")
	_ = syncCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	source := models.SourceTag(strings.ToUpper(syncSource))
	input := app.Input{File: syncInput, URL: syncURL, IDs: syncIDs}

	return runJob(cmd, linking.JobName(source), func(ctx context.Context, a *app.App) error {
		records, providerErrs, err := a.Collect(ctx, source, input)
		if err != nil {
			return err
		}

		syncer, runner, err := a.Syncer(syncCreateMissing, syncDryRun)
		if err != nil {
			return jobs.Fatal(err)
		}

		_, summary, err := syncer.Sync(ctx, runner, source, records, syncResume)
		app.AddProviderErrors(summary, providerErrs)
		printSummary(cmd.OutOrStdout(), summary)
		return err
	})
}
