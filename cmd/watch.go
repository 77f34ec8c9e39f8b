package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/output"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track sources to revisit on a schedule",
}

var watchAddCmd = &cobra.Command{
	Use:   "add [project-id] [target]",
	Short: "Register a URL or query to watch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		targetType, _ := cmd.Flags().GetString("type")
		tags, _ := cmd.Flags().GetString("tags")
		interval, _ := cmd.Flags().GetInt("interval")

		wt, created, err := database.AddWatchTarget(args[0], branch, targetType, args[1], tags, interval)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		if !created {
			output.Mutedf("Already watching as %s.", wt.ID)
			return nil
		}
		output.Successf("Watching %s (%s) every %ds", wt.ID, wt.Type, wt.IntervalSec)
		return nil
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List watch targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		all, _ := cmd.Flags().GetBool("all")

		targets, err := database.ListWatchTargets(args[0], branch, all)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(targets)
		}

		if len(targets) == 0 {
			fmt.Println("No watch targets.")
			return nil
		}
		for _, wt := range targets {
			line := fmt.Sprintf("%s  [%s/%s] %s", wt.ID, wt.Type, wt.Status, wt.Target)
			if wt.Status == models.WatchDisabled {
				output.Mutedf("%s", line)
			} else {
				fmt.Println(line)
			}
		}
		return nil
	},
}

var watchDisableCmd = &cobra.Command{
	Use:   "disable [watch-id]",
	Short: "Stop watching a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		if err := database.DisableWatchTarget(args[0]); err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Disabled %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAddCmd)
	watchCmd.AddCommand(watchListCmd)
	watchCmd.AddCommand(watchDisableCmd)

	watchAddCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	watchAddCmd.Flags().StringP("type", "t", "url", "Target type (url|query)")
	watchAddCmd.Flags().String("tags", "", "Comma-separated tags for ingested findings")
	watchAddCmd.Flags().Int("interval", 86400, "Revisit interval in seconds")

	watchListCmd.Flags().StringP("branch", "b", "", "Filter to one branch")
	watchListCmd.Flags().Bool("all", false, "Include disabled targets")
	watchListCmd.Flags().Bool("json", false, "Output as JSON")
}
