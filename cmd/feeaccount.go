package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/feeaccount"
	"zionix-swap/pkg/types"
)

var feeAccountCmd = &cobra.Command{
	Use:   "fee-account <token>",
	Short: "Find or create the platform fee account for a token",
	Long: `Resolve the account that receives the platform fee for a token.
Existing accounts under either token program are reused; otherwise the
fee server is asked to create one.

Examples:
  zionix fee-account USDC
  zionix fee-account DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263`,
	Args: cobra.ExactArgs(1),
	Run:  runFeeAccount,
}

func init() {
	rootCmd.AddCommand(feeAccountCmd)
}

func runFeeAccount(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	owner, err := rt.feeWallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	token, err := rt.resolveToken(cmd.Context(), args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking fee account..."
		s.Start()
	}
	rec, err := rt.provisioner().Ensure(cmd.Context(), owner, solana.MustPublicKeyFromBase58(token.Address))
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
		if err != nil {
			os.Exit(1)
		}
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        FEE ACCOUNT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Token:     %s\n", color.YellowString(token.Symbol))
	fmt.Printf("  Owner:     %s\n", rec.Owner)
	fmt.Printf("  Status:    %s\n", coloredFeeStatus(rec.Status))
	if rec.Address != "" {
		fmt.Printf("  Account:   %s\n", color.CyanString(rec.Address))
		fmt.Printf("  Standard:  %s\n", rec.Standard)
	}
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")

	if err != nil {
		if errors.Is(err, feeaccount.ErrFeeAccountMissing) {
			color.Yellow("Is the fee server running at %s?", rt.cfg.FeeServer.URL)
		}
		printError(err)
		os.Exit(1)
	}
}

func coloredFeeStatus(status types.FeeAccountStatus) string {
	switch status {
	case types.FeeAccountExists:
		return color.GreenString(string(status))
	case types.FeeAccountCreated:
		return color.CyanString(string(status))
	default:
		return color.RedString(string(status))
	}
}
