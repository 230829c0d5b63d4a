package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "bargain",
		Short: "Second-hand price comparison with automated seller negotiation",
		Long: `bargain searches a marketplace for a product, negotiates with several
sellers at once and reports the best resulting deal.

Use 'bargain serve' to run the HTTP API.
Use 'bargain run' for a single comparison from the command line.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BARGAIN_CONFIG"), "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
