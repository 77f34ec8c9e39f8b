package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run a cached web search",
	Long: `Search queries the configured web search provider. Equivalent queries
are answered from the shared cache until the configured TTL expires, so
repeated lookups cost no API calls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			output.Errorf("%v", err)
			return err
		}
		defer database.Close()

		query := strings.Join(args, " ")

		// Manual cache injection: store the given results for this query and
		// skip the provider entirely.
		if setResult, _ := cmd.Flags().GetString("set-result"); setResult != "" {
			var results []search.Result
			if err := json.Unmarshal([]byte(setResult), &results); err != nil {
				output.Errorf("--set-result must be a JSON array of results: %v", err)
				return err
			}
			if err := database.LogSearch(query, []byte(setResult)); err != nil {
				output.Errorf("%v", err)
				return err
			}
			output.Successf("Cached %d results for %q", len(results), query)
			return nil
		}

		client := search.NewClient(database, search.NewBraveProvider(cfg.BraveAPIKey), cfg.SearchCacheTTL)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		resp, err := client.Search(ctx, query)
		if err != nil {
			if errors.Is(err, models.ErrMissingAPIKey) {
				output.Errorf("no search API key configured; set BRAVE_API_KEY")
			} else {
				output.Errorf("%v", err)
			}
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(resp)
		}

		if resp.Cached {
			output.Mutedf("(cached)")
		}
		if len(resp.Results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, r := range resp.Results {
			fmt.Printf("%d. %s\n   %s\n", i+1, r.Title, r.URL)
			if r.Description != "" {
				output.Mutedf("   %s", r.Description)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().String("set-result", "", "Cache a JSON result array for this query instead of searching")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}
