package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/search"
	"github.com/marcus/vault/internal/strategy"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy [project-id]",
	Short: "Recommend the next research move for a branch",
	Long: `Strategy analyzes a branch's findings, missions, and synthesis links
and recommends one next action: gather more sources, synthesize, plan
verification, or run the queued missions. Pass --execute to carry out
actions that need no human input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		execute, _ := cmd.Flags().GetBool("execute")
		asJSON, _ := cmd.Flags().GetBool("json")

		rec, err := strategy.Advise(database, args[0], branch)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		var execResult any
		if execute {
			client := search.NewClient(database, search.NewBraveProvider(cfg.BraveAPIKey), cfg.SearchCacheTTL)
			execResult, err = strategy.Execute(cmd.Context(), database, client, args[0], branch, rec)
			if err != nil {
				output.Errorf("%v", err)
				return err
			}
		}

		if asJSON {
			if execute {
				return printJSON(map[string]any{"recommendation": rec, "result": execResult})
			}
			return printJSON(rec)
		}

		output.Title(rec.Action)
		fmt.Println(rec.Reason)
		fmt.Printf("Progress: %.0f%%  (findings %d, artifacts %d, open missions %d, links %d)\n",
			rec.ProgressScore*100, rec.State.Findings, rec.State.Artifacts, rec.State.OpenMissions, rec.State.Links)
		if execute {
			output.Successf("Executed %s.", rec.Action)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	strategyCmd.Flags().Bool("execute", false, "Carry out the recommended action")
	strategyCmd.Flags().Bool("json", false, "Output as JSON")
}
