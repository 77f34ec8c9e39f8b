package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
)

var hypothesisCmd = &cobra.Command{
	Use:     "hypothesis",
	Aliases: []string{"hyp"},
	Short:   "Track falsifiable statements per branch",
}

var hypothesisAddCmd = &cobra.Command{
	Use:   "add [project-id] [statement]",
	Short: "Attach a hypothesis to a branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		rationale, _ := cmd.Flags().GetString("rationale")
		confidence, _ := cmd.Flags().GetFloat64("confidence")

		h, err := database.AddHypothesis(args[0], branch, args[1], rationale, confidence)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Added %s: %s", h.ID, h.Statement)
		return nil
	},
}

var hypothesisListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List hypotheses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		hypotheses, err := database.ListHypotheses(args[0], branch)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(hypotheses)
		}

		if len(hypotheses) == 0 {
			fmt.Println("No hypotheses.")
			return nil
		}
		for _, h := range hypotheses {
			fmt.Printf("%s  [%s] %.2f  (%s) %s\n", h.ID, h.Status, h.Confidence, h.Branch, h.Statement)
		}
		return nil
	},
}

var hypothesisUpdateCmd = &cobra.Command{
	Use:   "update [hypothesis-id]",
	Short: "Change a hypothesis status or confidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		status, _ := cmd.Flags().GetString("status")
		confidence := -1.0
		if cmd.Flags().Changed("confidence") {
			confidence, _ = cmd.Flags().GetFloat64("confidence")
		}

		if err := database.UpdateHypothesisStatus(args[0], status, confidence); err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Updated %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hypothesisCmd)
	hypothesisCmd.AddCommand(hypothesisAddCmd)
	hypothesisCmd.AddCommand(hypothesisListCmd)
	hypothesisCmd.AddCommand(hypothesisUpdateCmd)

	hypothesisAddCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	hypothesisAddCmd.Flags().String("rationale", "", "Why this is plausible")
	hypothesisAddCmd.Flags().Float64("confidence", 0.5, "Confidence in [0,1]")

	hypothesisListCmd.Flags().StringP("branch", "b", "", "Filter to one branch")
	hypothesisListCmd.Flags().Bool("json", false, "Output as JSON")

	hypothesisUpdateCmd.Flags().StringP("status", "s", "open", "New status (open|accepted|rejected|archived)")
	hypothesisUpdateCmd.Flags().Float64("confidence", 0.5, "New confidence in [0,1]")
}
