package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/synthesis"
)

var synthesizeCmd = &cobra.Command{
	Use:     "synthesize [project-id]",
	Aliases: []string{"synth"},
	Short:   "Link similar findings and artifacts",
	Long: `Synthesize embeds every finding and artifact on a branch, compares
them pairwise, and records similarity links above the threshold. Links are
capped per entity and per pass so a dense branch stays readable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		topK, _ := cmd.Flags().GetInt("top-k")
		maxLinks, _ := cmd.Flags().GetInt("max-links")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		res, err := synthesis.Run(database, args[0], branch, synthesis.Options{
			Threshold: threshold,
			TopK:      topK,
			MaxLinks:  maxLinks,
			DryRun:    dryRun,
		})
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}

		fmt.Printf("Compared %d entities, %d candidate pairs.\n", res.Entities, res.Candidates)
		if res.Linked == 0 {
			output.Mutedf("No pairs above threshold %.2f.", res.Threshold)
			return nil
		}
		if dryRun {
			output.Mutedf("Dry run: %d pairs above %.2f would be linked.", res.Linked, res.Threshold)
			return nil
		}
		output.Successf("Recorded %d links above %.2f.", res.Linked, res.Threshold)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)
	synthesizeCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	synthesizeCmd.Flags().Float64("threshold", 0, "Minimum similarity (default 0.78)")
	synthesizeCmd.Flags().Int("top-k", 0, "Max links per entity (default 5)")
	synthesizeCmd.Flags().Int("max-links", 0, "Max links per pass (default 50)")
	synthesizeCmd.Flags().Bool("dry-run", false, "Score pairs without recording links")
	synthesizeCmd.Flags().Bool("json", false, "Output as JSON")
}
