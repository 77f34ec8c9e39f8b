package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/strategy"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show a branch's research state at a glance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		p, err := database.GetProject(args[0])
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		st, err := strategy.Analyze(database, p.ID, branch)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(st)
		}

		output.Title(fmt.Sprintf("%s [%s]", p.Name, p.Status))
		fmt.Printf("findings: %d (%d shaky)  artifacts: %d  events: %d\n",
			st.Findings, st.ShakyFindings, st.Artifacts, st.Events)
		fmt.Printf("missions: %d open, %d blocked  links: %d\n",
			st.OpenMissions, st.Blocked, st.Links)
		fmt.Printf("coverage: %.0f%%  avg confidence: %.2f\n",
			st.Coverage*100, st.AvgConfidence)

		recent, err := database.ListRecentEvents(p.ID, branch, 5)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		if len(recent) > 0 {
			fmt.Println()
			for _, e := range recent {
				output.Mutedf("%s  %-14s step %d",
					e.Timestamp.Format("2006-01-02 15:04"), e.Type, e.Step)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}
