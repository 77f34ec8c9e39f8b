package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/output"
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Record and browse findings",
}

var insightAddCmd = &cobra.Command{
	Use:   "add [project-id]",
	Short: "Record a finding",
	Long: `Record a finding on a branch. Content is scrubbed of credentials and
sensitive paths before it is stored. With --interactive, a form prompts
for each field instead of flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		source, _ := cmd.Flags().GetString("source")
		tags, _ := cmd.Flags().GetString("tags")
		confidence, _ := cmd.Flags().GetFloat64("confidence")

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			var confStr string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().Title("Title").Value(&title),
					huh.NewText().Title("Content").Value(&content),
					huh.NewInput().Title("Source URL").Value(&source),
					huh.NewInput().Title("Tags (comma-separated)").Value(&tags),
					huh.NewInput().Title("Confidence (0-1)").Value(&confStr).
						Validate(func(s string) error {
							c, err := strconv.ParseFloat(s, 64)
							if err != nil || !models.IsValidConfidence(c) {
								return fmt.Errorf("enter a number between 0 and 1")
							}
							return nil
						}),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			confidence, _ = strconv.ParseFloat(confStr, 64)
		}

		var evidence map[string]any
		if source != "" {
			evidence = map[string]any{"source_url": source}
		}

		f, err := database.AddFinding(args[0], branch, title, content, evidence, confidence, tags)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Recorded %s: %s", f.ID, f.Title)
		return nil
	},
}

var insightListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List findings on a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		tag, _ := cmd.Flags().GetString("tag")
		limit, _ := cmd.Flags().GetInt("limit")

		findings, err := database.ListFindings(args[0], branch, tag, limit)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		// Fuzzy-match against titles when a filter is given.
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			titles := make([]string, len(findings))
			for i, f := range findings {
				titles[i] = f.Title
			}
			matches := fuzzy.Find(filter, titles)
			filtered := make([]*models.Finding, 0, len(matches))
			for _, m := range matches {
				filtered = append(filtered, findings[m.Index])
			}
			findings = filtered
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(findings)
		}

		if len(findings) == 0 {
			fmt.Println("No findings.")
			return nil
		}
		for _, f := range findings {
			fmt.Printf("%s  %.2f  %s\n", f.ID, f.Confidence, f.Title)
			if f.Tags != "" {
				output.Mutedf("          tags: %s", f.Tags)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightCmd)
	insightCmd.AddCommand(insightAddCmd)
	insightCmd.AddCommand(insightListCmd)

	insightAddCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	insightAddCmd.Flags().StringP("title", "t", "", "Finding title")
	insightAddCmd.Flags().StringP("content", "c", "", "Finding content")
	insightAddCmd.Flags().String("source", "", "Evidence source URL")
	insightAddCmd.Flags().String("tags", "", "Comma-separated tags")
	insightAddCmd.Flags().Float64("confidence", 0.5, "Confidence in [0,1]")
	insightAddCmd.Flags().BoolP("interactive", "i", false, "Prompt for fields")

	insightListCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	insightListCmd.Flags().String("tag", "", "Filter by tag")
	insightListCmd.Flags().StringP("filter", "f", "", "Fuzzy-filter titles")
	insightListCmd.Flags().IntP("limit", "l", 50, "Max findings")
	insightListCmd.Flags().Bool("json", false, "Output as JSON")
}
