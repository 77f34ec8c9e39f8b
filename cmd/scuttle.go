package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/ingest"
	"github.com/marcus/vault/internal/output"
)

var scuttleCmd = &cobra.Command{
	Use:   "scuttle [project-id] [source...]",
	Short: "Ingest external sources into findings",
	Long: `Scuttle fetches one or more sources (URLs) through the connector
registry and stores the extracted content as findings on a branch. Each
ingestion is recorded as an INGEST event.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		asJSON, _ := cmd.Flags().GetBool("json")
		allowPrivate, _ := cmd.Flags().GetBool("allow-private-networks")

		baseCtx := cmd.Context()
		if allowPrivate {
			baseCtx = ingest.AllowPrivate(baseCtx)
		}

		svc := ingest.NewService(database)
		var results []*ingest.Result
		var firstErr error
		for _, source := range args[1:] {
			ctx, cancel := context.WithTimeout(baseCtx, 30*time.Second)
			res, err := svc.Ingest(ctx, args[0], branch, source)
			cancel()
			if err != nil {
				output.Errorf("%s: %v", source, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			results = append(results, res)
			if !asJSON {
				output.Successf("Ingested %s via %s (%.2f): %s", res.FindingID, res.Connector, res.Confidence, res.Title)
			}
		}

		if asJSON {
			if err := printJSON(results); err != nil {
				return err
			}
		}
		return firstErr
	},
}

func init() {
	rootCmd.AddCommand(scuttleCmd)
	scuttleCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	scuttleCmd.Flags().Bool("allow-private-networks", false, "Permit fetching private and loopback addresses")
	scuttleCmd.Flags().Bool("json", false, "Output as JSON")
}
