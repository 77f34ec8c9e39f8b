package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
)

var updateCmd = &cobra.Command{
	Use:   "update [project-id]",
	Short: "Change a project's status or priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		changed := false
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			if err := database.UpdateProjectStatus(args[0], status); err != nil {
				output.Errorf("%v", err)
				return err
			}
			changed = true
		}
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetInt("priority")
			if err := database.UpdateProjectPriority(args[0], priority); err != nil {
				output.Errorf("%v", err)
				return err
			}
			changed = true
		}

		if !changed {
			output.Warnf("Nothing to update; pass --status or --priority")
			return nil
		}
		output.Successf("Updated %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringP("status", "s", "", "New status (active|paused|completed|failed)")
	updateCmd.Flags().IntP("priority", "p", 0, "New priority")
}
