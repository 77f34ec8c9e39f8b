package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
)

var logCmd = &cobra.Command{
	Use:   "log [project-id] [event-type]",
	Short: "Append an audit event",
	Long: `Append an event to a branch's audit trail. The payload is scrubbed
before storage. Events are append-only.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		payloadStr, _ := cmd.Flags().GetString("payload")
		step, _ := cmd.Flags().GetInt("step")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		source, _ := cmd.Flags().GetString("source")
		tags, _ := cmd.Flags().GetString("tags")

		payload := parsePayload(payloadStr)

		if !cmd.Flags().Changed("step") {
			branchID, err := database.ResolveBranchID(args[0], branch)
			if err != nil {
				output.Errorf("%v", err)
				return err
			}
			step, err = database.NextStep(args[0], branchID)
			if err != nil {
				output.Errorf("%v", err)
				return err
			}
		}

		e, err := database.AppendEvent(args[0], branch, args[1], step, payload, confidence, source, tags)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Logged %s step %d (event %d)", e.Type, e.Step, e.ID)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [project-id]",
	Short: "Show recent audit events",
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

		events, err := database.ListRecentEvents(args[0], branch, limit)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(events)
		}

		for _, e := range events {
			fmt.Printf("%s  %-14s step %-3d %s\n",
				e.Timestamp.Format("2006-01-02 15:04"), e.Type, e.Step, e.Payload)
		}
		if len(events) == 0 {
			fmt.Println("No events.")
		}
		return nil
	},
}

// parsePayload interprets the --payload flag. Valid JSON is stored as-is;
// anything else is wrapped as a message object so plain text still works.
func parsePayload(s string) any {
	if s == "" {
		return map[string]string{}
	}
	var payload any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return map[string]string{"message": s}
	}
	return payload
}

func init() {
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(eventsCmd)

	logCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	logCmd.Flags().StringP("payload", "p", "", "JSON payload (plain text is wrapped)")
	logCmd.Flags().Int("step", 0, "Step number (defaults to the next step)")
	logCmd.Flags().Float64("confidence", 1.0, "Confidence in [0,1]")
	logCmd.Flags().String("source", "cli", "Event source")
	logCmd.Flags().String("tags", "", "Comma-separated tags")

	eventsCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	eventsCmd.Flags().IntP("limit", "l", 20, "Max events")
	eventsCmd.Flags().Bool("json", false, "Output as JSON")
}
