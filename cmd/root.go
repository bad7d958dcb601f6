package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zionix",
	Short: "A CLI for token swaps on Solana through the Jupiter aggregator",
	Long: `zionix quotes and executes token swaps on Solana through the Jupiter
aggregator, collecting the Zionix platform fee on every swap.

Examples:
  zionix swap 10 USDT to SOL
  zionix quote 1.5 SOL to JUP
  zionix balance <wallet> USDC BONK
  zionix tokens list
  zionix status <signature> --watch`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
