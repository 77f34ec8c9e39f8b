package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init [project-id]",
	Short: "Create the database and a new project",
	Long: `Initialize the vault database (if needed) and create a project with its
main branch. Project ids are caller-chosen and permanent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Initialize(cfg.DBPath)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		name, _ := cmd.Flags().GetString("name")
		objective, _ := cmd.Flags().GetString("objective")

		p, err := database.CreateProject(args[0], name, objective)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		output.Successf("Created project %s (branch: main)", p.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringP("name", "n", "", "Display name (defaults to the id)")
	initCmd.Flags().StringP("objective", "o", "", "Research objective")
}
