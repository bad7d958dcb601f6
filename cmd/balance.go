package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/types"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <wallet> [token...]",
	Short: "Show SOL and token balances for a wallet",
	Long: `Show the SOL balance of a wallet and its balance of each listed token.
Token accounts of both token programs are checked.

Examples:
  zionix balance <wallet>
  zionix balance <wallet> USDC USDT BONK`,
	Args: cobra.MinimumNArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

type balanceRow struct {
	Symbol  string `json:"symbol"`
	Mint    string `json:"mint"`
	Account string `json:"account,omitempty"`
	Amount  string `json:"amount"`
}

func runBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	holder, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid wallet address: %w", err))
		os.Exit(1)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx := cmd.Context()
	symbols := append([]string{"SOL"}, args[1:]...)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading balances..."
		s.Start()
	}

	reader := rt.balances()
	var rows []balanceRow
	for _, sym := range symbols {
		token, err := rt.resolveToken(ctx, sym)
		if err != nil {
			rt.log.Sugar().Warnf("skipping %s: %v", sym, err)
			continue
		}
		mint := solana.MustPublicKeyFromBase58(token.Address)
		bal := reader.Read(ctx, holder, mint)
		if bal.Decimals == 0 {
			bal.Decimals = token.Decimals
		}

		row := balanceRow{Symbol: token.Symbol, Mint: token.Address, Amount: bal.UIAmount()}
		if bal.Found && token.Address != types.NativeMint {
			row.Account = bal.Account.String()
		}
		rows = append(rows, row)
	}
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                 BALANCES")
	fmt.Println(strings.Repeat("=", 90))
	fmt.Printf("\n  Wallet: %s\n\n", color.CyanString(holder.String()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TOKEN\tBALANCE\tTOKEN ACCOUNT")
	for _, row := range rows {
		account := row.Account
		if account == "" {
			account = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", color.YellowString(row.Symbol), row.Amount, color.HiBlackString(account))
	}
	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
}
