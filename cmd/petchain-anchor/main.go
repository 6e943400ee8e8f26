package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/cmd/petchain-anchor/commands"
	"github.com/DogStark/petchain-anchor/logger"
)

var rootCmd = &cobra.Command{
	Use:   "petchain-anchor",
	Short: "PetChain anchoring pipeline for veterinary medical records",
	Long: `PetChain blockchain anchoring and synchronization.

Encrypts veterinary medical records, stores them in IPFS, and anchors
their hashes on the Stellar ledger so any party can later prove a record
has not been altered.

Available commands:
  serve   - Start the anchoring HTTP API
  sync    - Anchor a single record from the command line
  verify  - Re-check a synced record against store and ledger
  status  - Show the sync state for a record
  db      - Manage the sync-state database
  version - Show version information

Examples:
  petchain-anchor serve                        # Start the API on the configured address
  petchain-anchor sync r1 VACCINATION -d '{}'  # Anchor a record
  petchain-anchor status r1                    # Inspect its sync state
  petchain-anchor db migrate                   # Apply schema migrations`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.SyncCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
