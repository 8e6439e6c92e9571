package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/pkg/confidence"
	"github.com/Ramsey-B/iris/pkg/providers"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the link confidence of every source",
	Long: `Print the confidence and match method recorded on links created from each source,
most trusted first. "via pivot" is the confidence used when a record was resolved through
its Wikidata identifier.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCONFIDENCE\tMATCHED BY\tVIA PIVOT\tSYNC")
	for _, entry := range confidence.Entries() {
		syncable := "no"
		if providers.Supported(entry.Source) {
			syncable = "yes"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%.2f\t%s\n",
			entry.Source, entry.Confidence, entry.MatchedBy, confidence.ForPivot(entry.Source).Confidence, syncable)
	}
	return tw.Flush()
}
