package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches of inquiry",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create [project-id] [name]",
	Short: "Fork a new branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		parent, _ := cmd.Flags().GetString("from")
		hypothesis, _ := cmd.Flags().GetString("hypothesis")

		b, err := database.CreateBranch(args[0], args[1], parent, hypothesis)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Created branch %s (%s)", b.Name, b.ID)
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "Show a project's branch tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branches, err := database.ListBranches(args[0])
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(branches)
		}

		roots := output.BuildBranchTree(branches)
		tree := output.RenderBranchTree(roots)
		if tree == "" {
			fmt.Println("No branches.")
			return nil
		}
		fmt.Println(tree)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchCmd)
	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)

	branchCreateCmd.Flags().String("from", "", "Parent branch (defaults to main)")
	branchCreateCmd.Flags().String("hypothesis", "", "What this branch explores")

	branchListCmd.Flags().Bool("json", false, "Output as JSON")
}
