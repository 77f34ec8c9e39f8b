package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/output"
)

var artifactCmd = &cobra.Command{
	Use:     "artifact",
	Aliases: []string{"art"},
	Short:   "Record files and references tied to a project",
}

var artifactAddCmd = &cobra.Command{
	Use:   "add [project-id] [path]",
	Short: "Register an artifact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		branch, _ := cmd.Flags().GetString("branch")
		artType, _ := cmd.Flags().GetString("type")
		metaRaw, _ := cmd.Flags().GetString("metadata")

		var metadata map[string]any
		if metaRaw != "" {
			if err := json.Unmarshal([]byte(metaRaw), &metadata); err != nil {
				output.Errorf("metadata must be a JSON object: %v", err)
				return err
			}
		}

		path := args[1]
		if artType == "file" {
			path, err = allowedArtifactPath(path)
			if err != nil {
				output.Errorf("%v", err)
				return err
			}
		}

		a, err := database.AddArtifact(args[0], branch, artType, path, metadata)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		payload := map[string]string{"artifact_id": a.ID, "path": a.Path, "type": a.Type}
		if _, err := database.AppendEvent(args[0], branch, "ARTIFACT", 0, payload, 1.0, "cli", ""); err != nil {
			output.Errorf("%v", err)
			return err
		}
		output.Successf("Added %s (%s) %s", a.ID, a.Type, a.Path)
		return nil
	},
}

var artifactListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List artifacts",
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
		artifacts, err := database.ListArtifacts(args[0], branch, limit)
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(artifacts)
		}

		if len(artifacts) == 0 {
			fmt.Println("No artifacts.")
			return nil
		}
		for _, a := range artifacts {
			fmt.Printf("%s  [%s] %s\n", a.ID, a.Type, a.Path)
		}
		return nil
	},
}

// allowedArtifactPath resolves a file path and requires it to live under the
// vault home or the working directory.
func allowedArtifactPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, base := range []string{wd, cfg.Home} {
		rel, err := filepath.Rel(base, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: path %q is outside the vault home and working directory", models.ErrValidation, path)
}

func init() {
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactAddCmd)
	artifactCmd.AddCommand(artifactListCmd)

	artifactAddCmd.Flags().StringP("branch", "b", "", "Branch (defaults to main)")
	artifactAddCmd.Flags().StringP("type", "t", "file", "Artifact type (file|url|dataset|note)")
	artifactAddCmd.Flags().StringP("metadata", "m", "", "Metadata as a JSON object")

	artifactListCmd.Flags().StringP("branch", "b", "", "Filter to one branch")
	artifactListCmd.Flags().IntP("limit", "l", 50, "Max artifacts to show")
	artifactListCmd.Flags().Bool("json", false, "Output as JSON")
}
