package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/config"
	"github.com/marcus/vault/internal/db"
)

var (
	version string
	cfg     *config.Config
	dbFlag  string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "Local research memory CLI",
	Long: `vault - A local-first research vault for findings, branches of inquiry, and verification.

Everything lives in one SQLite file. Content is scrubbed of secrets on the
way in, branches keep competing lines of reasoning apart, and the synthesis
and verification engines work the backlog down.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database file (overrides VAULT_DB and config)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(dbFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot load configuration: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured database, failing when it does not exist.
func openStore() (*db.DB, error) {
	return db.Open(cfg.DBPath)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
