package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/client"
	"zionix-swap/pkg/parser"
	"zionix-swap/pkg/quote"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Get a swap quote without executing it",
	Long: `Fetch a Jupiter quote including the platform fee.

Examples:
  zionix quote 10 USDT to SOL
  zionix quote 1 SOL to BONK --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

var quoteWatchCmd = &cobra.Command{
	Use:   "watch <source-token> [to] <dest-token>",
	Short: "Re-quote as amounts are typed, one per line",
	Long: `Read amounts from standard input, one per line, and keep a live quote
for the latest amount. Amounts typed in quick succession are debounced and
only the most recent one is quoted.

Examples:
  zionix quote watch USDT SOL
  zionix quote watch SOL to BONK`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runQuoteWatch,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteWatchCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
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

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	_, _, result, err := fetchQuote(cmd.Context(), rt, swapReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		if errors.Is(err, client.ErrNoRoute) {
			color.Yellow("\nNo route found for %s → %s at this amount.\n", swapReq.SourceToken, swapReq.DestToken)
			os.Exit(1)
		}
		printError(err)
		os.Exit(1)
	}

	display := toQuoteDisplay(result, rt.cfg.Swap.PlatformFeeBps)
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(display, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayQuote(display)
}

func runQuoteWatch(cmd *cobra.Command, args []string) {
	src, dst, err := parser.ParsePair(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := rt.resolveToken(ctx, src)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	output, err := rt.resolveToken(ctx, dst)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	updates := make(chan struct{}, 1)
	q := rt.quoter(quote.OnUpdate(func(res *quote.Result) {
		printWatchResult(res)
		select {
		case updates <- struct{}{}:
		default:
		}
	}))
	defer q.Stop()

	fmt.Printf("\nQuoting %s → %s. Type an amount and press enter. Ctrl+C to stop.\n\n",
		color.YellowString(input.Symbol), color.YellowString(output.Symbol))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			pending = false
		case line, ok := <-lines:
			if !ok {
				if pending {
					// input ended; wait for the last quote
					select {
					case <-updates:
					case <-ctx.Done():
					case <-time.After(rt.cfg.Swap.QuoteDebounce + rt.cfg.Swap.HTTPTimeout):
					}
				}
				return
			}
			pending = true
			q.Request(quote.Input{InputToken: input, OutputToken: output, Amount: strings.TrimSpace(line)})
		}
	}
}

func printWatchResult(res *quote.Result) {
	in := res.Input
	switch {
	case res.Err != nil && errors.Is(res.Err, client.ErrNoRoute):
		color.Yellow("  %s %s → no route", in.Amount, in.InputToken.Symbol)
	case res.Err != nil && errors.Is(res.Err, parser.ErrInvalidAmount):
		fmt.Printf("  %s\n", color.HiBlackString("enter an amount greater than zero"))
	case res.Err != nil:
		color.Red("  %s %s → %v", in.Amount, in.InputToken.Symbol, res.Err)
	default:
		fmt.Printf("  %s %s → ~%s %s\n",
			in.Amount, color.YellowString(in.InputToken.Symbol),
			color.GreenString(res.BuyAmount), color.YellowString(in.OutputToken.Symbol))
	}
}
