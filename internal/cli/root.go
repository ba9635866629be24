// Package cli implements the greenloop command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "greenloop",
	Short: "GreenLoop environmental-action rewards platform",
	Long: `GreenLoop rewards real-world environmental action with credits.
Users earn credits by submitting cleanup evidence and completing tasks,
and spend them redeeming partner vouchers. Every credit movement is a
hash-stamped, block-numbered entry in the ledger.`,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config.toml")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the greenloop version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "greenloop %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
