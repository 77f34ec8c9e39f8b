package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/search"
	"github.com/marcus/vault/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Plan and run verification missions for shaky findings",
}

var verifyPlanCmd = &cobra.Command{
	Use:   "plan [project-id]",
	Short: "Queue missions for low-confidence findings",
	Long: `Plan scans a branch for findings below the confidence threshold or
tagged unverified and queues search missions to corroborate them. Planning
is idempotent; unchanged findings produce no new missions.`,
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
		maxMissions, _ := cmd.Flags().GetInt("max")

		res, err := verify.Plan(database, args[0], branch, verify.PlanOptions{
			ConfidenceThreshold: threshold,
			MaxMissions:         maxMissions,
		})
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}
		fmt.Printf("%d shaky findings, %d missions queued, %d already planned.\n",
			res.Candidates, res.Created, res.Skipped)
		return nil
	},
}

var verifyListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List verification missions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		missions, err := database.ListMissions(args[0], branch, status, limit)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(missions)
		}

		if len(missions) == 0 {
			fmt.Println("No missions.")
			return nil
		}
		for _, m := range missions {
			fmt.Printf("%s  [%s] p%d  %s\n", m.ID, m.Status, m.Priority, m.Query)
		}
		return nil
	},
}

var verifyRunCmd = &cobra.Command{
	Use:   "run [project-id]",
	Short: "Execute queued missions through the search provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		limit, _ := cmd.Flags().GetInt("limit")

		client := search.NewClient(database, search.NewBraveProvider(cfg.BraveAPIKey), cfg.SearchCacheTTL)
		res, err := verify.Run(cmd.Context(), database, client, args[0], branch, verify.RunOptions{Limit: limit})
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}
		fmt.Printf("Attempted %d: %d done, %d blocked, %d returned to the queue.\n",
			res.Attempted, res.Done, res.Blocked, res.Failed)
		if res.Blocked > 0 {
			output.Warnf("Missions blocked; set BRAVE_API_KEY to run them.")
		}
		return nil
	},
}

var verifyCompleteCmd = &cobra.Command{
	Use:   "complete [mission-id]",
	Short: "Mark a mission done by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		note, _ := cmd.Flags().GetString("note")
		meta := "{}"
		if note != "" {
			raw, err := json.Marshal(map[string]string{"note": note})
			if err != nil {
				return err
			}
			meta = string(raw)
		}

		if err := database.CompleteMission(args[0], meta); err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Completed %s", args[0])
		return nil
	},
}

var verifyCancelCmd = &cobra.Command{
	Use:   "cancel [mission-id]",
	Short: "Cancel a mission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		if err := database.CancelMission(args[0]); err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Cancelled %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifyPlanCmd)
	verifyCmd.AddCommand(verifyListCmd)
	verifyCmd.AddCommand(verifyRunCmd)
	verifyCmd.AddCommand(verifyCompleteCmd)
	verifyCmd.AddCommand(verifyCancelCmd)

	verifyPlanCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	verifyPlanCmd.Flags().Float64("threshold", 0, "Confidence below this is shaky (default 0.7)")
	verifyPlanCmd.Flags().Int("max", 0, "Missions per planning pass (default 10)")
	verifyPlanCmd.Flags().Bool("json", false, "Output as JSON")

	verifyListCmd.Flags().StringP("branch", "b", "", "Filter to one branch")
	verifyListCmd.Flags().StringP("status", "s", "", "Filter by status (open|in_progress|done|blocked|cancelled)")
	verifyListCmd.Flags().Int("limit", 50, "Max missions to show")
	verifyListCmd.Flags().Bool("json", false, "Output as JSON")

	verifyRunCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	verifyRunCmd.Flags().Int("limit", 0, "Missions per run (default 5)")
	verifyRunCmd.Flags().Bool("json", false, "Output as JSON")

	verifyCompleteCmd.Flags().String("note", "", "How the finding was verified")
}
