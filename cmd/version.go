package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vault version",
	Run: func(cmd *cobra.Command, args []string) {
		if version == "" {
			fmt.Println("vault (dev)")
			return
		}
		fmt.Printf("vault %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
