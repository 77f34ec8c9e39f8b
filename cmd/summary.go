package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/export"
	"github.com/marcus/vault/internal/output"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [project-id]",
	Short: "Render a branch summary",
	Long:  `Render the branch's findings, hypotheses, and connections as markdown.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		snap, err := export.Build(database, args[0], branch)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(snap)
		}

		md, err := export.Render(snap, export.FormatMarkdown)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.PrintMarkdown(string(md))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	summaryCmd.Flags().Bool("json", false, "Output as JSON")
}
