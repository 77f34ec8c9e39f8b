package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/export"
	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/output"
)

var exportCmd = &cobra.Command{
	Use:   "export [project-id]",
	Short: "Export a branch snapshot as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		snap, err := export.Build(database, args[0], branch)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if outPath != "" {
			// Writes are confined to the working directory or the vault home.
			err := export.WriteFile(snap, format, outPath, ".")
			if errors.Is(err, models.ErrValidation) {
				err = export.WriteFile(snap, format, outPath, cfg.Home)
			}
			if err != nil {
				output.Errorf("%v", err)
				return err
			}
			output.Successf("Wrote %s", outPath)
			return nil
		}

		rendered, err := export.Render(snap, format)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		if format == export.FormatMarkdown && output.IsTTY() {
			output.PrintMarkdown(string(rendered))
			return nil
		}
		fmt.Print(string(rendered))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	exportCmd.Flags().StringP("format", "f", export.FormatMarkdown, "Output format (markdown|json)")
	exportCmd.Flags().StringP("out", "o", "", "Write to a file under the vault home")
}
