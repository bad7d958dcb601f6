package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/parser"
	"zionix-swap/pkg/quote"
	"zionix-swap/pkg/swap"
	"zionix-swap/pkg/types"
	"zionix-swap/pkg/wallet"
)

var (
	keypairPath string
	noConfirm   bool
	waitConfirm bool
)

var stateMessages = map[swap.State]string{
	swap.CheckingBalance:    " Checking balances...",
	swap.EnsuringFeeAccount: " Preparing fee account...",
	swap.Building:           " Building and simulating transaction...",
	swap.Submitting:         " Submitting transaction...",
}

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens through the Jupiter aggregator",
	Long: `Quote, build, sign and submit a token swap on Solana.

Tokens can be given by symbol (SOL, USDC, USDT, JUP, BONK or any imported
token) or by mint address. The swap is simulated before you are asked to
sign it, and a SOL reserve is kept back for network fees.

Examples:
  zionix swap 10 USDT to SOL
  zionix swap 0.25 SOL to JUP --keypair ~/.config/solana/id.json
  zionix swap 1000 BONK to USDC --yes --wait`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVarP(&keypairPath, "keypair", "k", "", "Path to a solana-keygen keypair file (defaults to ZIONIX_KEYPAIR)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Sign without prompting")
	swapCmd.Flags().BoolVar(&waitConfirm, "wait", false, "Wait for the transaction to be confirmed")
}

func runSwap(cmd *cobra.Command, args []string) {
	// Parse the command
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := parser.ValidateSwapRequest(swapReq); err != nil {
		printError(err)
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	feeWallet, err := rt.feeWallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if keypairPath == "" {
		keypairPath = rt.cfg.KeypairPath
	}
	key, err := wallet.LoadKeypair(keypairPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve tokens and quote with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	input, output, result, err := fetchQuote(ctx, rt, swapReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(toQuoteDisplay(result, rt.cfg.Swap.PlatformFeeBps))
	}

	var approver wallet.Approver = wallet.PromptApprover{In: os.Stdin, Out: os.Stdout}
	if noConfirm || jsonOutput {
		approver = wallet.AutoApprove
	}
	signer := wallet.NewKeypairSigner(key, approver)

	builder := swap.NewBuilder(rt.jupiter, rt.provisioner(), rt.rpc, swap.BuilderConfig{
		FeeWallet:      feeWallet,
		PlatformFeeBps: rt.cfg.Swap.PlatformFeeBps,
		MinFeeReserve:  rt.cfg.MinFeeReserveLamports(),
		Commitment:     rt.commitment,
		Timeout:        rt.cfg.Swap.HTTPTimeout,
	}, rt.log)
	executor := swap.NewExecutor(rt.rpc, swap.ExecutorConfig{
		Commitment:    rt.commitment,
		MaxRetries:    rt.cfg.Swap.SubmitMaxRetries,
		SubmitTimeout: rt.cfg.Swap.SubmitTimeout,
	}, rt.log)

	session := swap.NewSession(swap.Deps{
		Balances:      rt.balances(),
		Builder:       builder,
		Executor:      executor,
		MinFeeReserve: rt.cfg.MinFeeReserveLamports(),
		Metrics:       rt.metrics,
		Log:           rt.log,
	})
	session.SetTokens(input, output)
	session.SetAmount(result.InAmount)
	session.SetQuote(result.Quote)

	if !jsonOutput {
		session.Machine().Observe(func(t swap.Transition) {
			if msg, ok := stateMessages[t.To]; ok {
				s.Suffix = msg
				if !s.Active() {
					s.Start()
				}
				return
			}
			s.Stop()
		})
	}

	snap, err := session.Execute(ctx, signer)
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		out := map[string]interface{}{
			"state":        snap.State,
			"source_token": input.Symbol,
			"dest_token":   output.Symbol,
			"in_amount":    result.InAmount.String(),
			"out_amount":   result.Quote.OutAmount.String(),
			"signature":    snap.Signature,
		}
		if err != nil {
			out["error"] = err.Error()
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		if err != nil {
			os.Exit(1)
		}
		return
	}

	switch snap.State {
	case swap.Cancelled:
		color.Yellow("\nSwap cancelled by user.\n")
		return
	case swap.Failed:
		color.Red("\nSwap failed.")
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Swap submitted successfully!")
	fmt.Printf("  Signature: %s\n", color.CyanString(snap.Signature))
	fmt.Printf("  Explorer:  %s\n", solscanTxURL(snap.Signature))

	if waitConfirm {
		sig := solana.MustSignatureFromBase58(snap.Signature)
		s.Suffix = " Waiting for confirmation..."
		s.Start()
		waitCtx, cancel := context.WithTimeout(ctx, rt.cfg.Swap.SubmitTimeout)
		status, err := executor.Confirm(waitCtx, sig)
		cancel()
		s.Stop()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		color.Green("  Confirmed in slot %d (%s)", status.Slot, status.ConfirmationStatus)
	}

	fmt.Println("\nYou can check the swap status using:")
	color.Cyan("  zionix status %s\n", snap.Signature)
}

func fetchQuote(ctx context.Context, rt *runtime, req *types.SwapRequest) (*types.TokenDescriptor, *types.TokenDescriptor, *quote.Result, error) {
	input, err := rt.resolveToken(ctx, req.SourceToken)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unknown source token %s: %w", req.SourceToken, err)
	}
	output, err := rt.resolveToken(ctx, req.DestToken)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unknown destination token %s: %w", req.DestToken, err)
	}
	if input.Address == output.Address {
		return nil, nil, nil, fmt.Errorf("source and destination token must differ")
	}

	result, err := rt.quoter().Fetch(ctx, quote.Input{InputToken: input, OutputToken: output, Amount: req.Amount})
	if err != nil {
		return nil, nil, nil, err
	}
	return input, output, result, nil
}

func toQuoteDisplay(res *quote.Result, feeBps int) *types.QuoteDisplay {
	q := res.Quote
	in, out := res.Input.InputToken, res.Input.OutputToken
	return &types.QuoteDisplay{
		SourceAmount: parser.FormatUnits(res.InAmount, in.Decimals, int(in.Decimals)),
		SourceToken:  in.Symbol,
		DestAmount:   res.BuyAmount,
		DestToken:    out.Symbol,
		MinimumOut:   parser.FormatUnits(q.OtherAmountThreshold, out.Decimals, 6),
		PriceImpact:  q.PriceImpactPct,
		SlippageBps:  q.SlippageBps,
		FeeBps:       feeBps,
		Route:        q.Labels(),
	}
}

func displayQuote(q *types.QuoteDisplay) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", q.SourceAmount, color.YellowString(q.SourceToken))
	fmt.Printf("  To:                ~%s %s\n", q.DestAmount, color.YellowString(q.DestToken))
	fmt.Printf("  Minimum Received:  %s %s\n", q.MinimumOut, q.DestToken)
	if q.PriceImpact != "" {
		fmt.Printf("  Price Impact:      %s%%\n", q.PriceImpact)
	}
	fmt.Printf("  Slippage:          %.2f%%\n", float64(q.SlippageBps)/100)
	fmt.Printf("  Platform Fee:      %.2f%%\n", float64(q.FeeBps)/100)
	if len(q.Route) > 0 {
		fmt.Printf("  Route:             %s\n", color.HiBlackString(strings.Join(q.Route, " → ")))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func solscanTxURL(signature string) string {
	return "https://solscan.io/tx/" + signature
}
