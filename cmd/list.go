package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		projects, err := database.ListProjects()
		if err != nil {
			output.Errorf("list projects: %v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(projects)
		}

		if len(projects) == 0 {
			fmt.Println("No projects. Create one with 'vault init <id>'.")
			return nil
		}
		for _, p := range projects {
			line := fmt.Sprintf("%-20s %-10s p%-3d %s", p.ID, p.Status, p.Priority, p.Objective)
			if p.Status == "active" {
				fmt.Println(line)
			} else {
				output.Mutedf("%s", line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "Output as JSON")
}
