package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "messagingctl",
	Short: "Operational tooling for the messaging API",
	Long: `messagingctl manages the messaging API database outside the server process.

Examples:
  messagingctl migrate up
  messagingctl migrate down --steps 1
  messagingctl migrate version`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	rootCmd.PersistentFlags().String("dsn", "", "Database DSN (defaults to DB_POSTGRESQL_WRITE_DSN)")
}
