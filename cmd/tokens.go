package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/metadata"
	"zionix-swap/pkg/types"
)

var (
	filterSymbol string
	withPrices   bool
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens"},
	Short:   "List, import and look up tokens",
	Long: `Manage the tokens zionix can swap.

Examples:
  zionix tokens list
  zionix tokens list --symbol US --prices
  zionix tokens import 2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo
  zionix tokens lookup PYUSD
  zionix tokens clear-cache`,
}

var tokensListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all known tokens",
	Run:     runListTokens,
}

var tokensImportCmd = &cobra.Command{
	Use:   "import <mint-address>",
	Short: "Import a token by mint address",
	Args:  cobra.ExactArgs(1),
	Run:   runImportToken,
}

var tokensLookupCmd = &cobra.Command{
	Use:   "lookup <symbol-or-address>",
	Short: "Show a token's metadata",
	Args:  cobra.ExactArgs(1),
	Run:   runLookupToken,
}

var tokensClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear the local token and image cache",
	Run:   runClearCache,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensImportCmd, tokensLookupCmd, tokensClearCacheCmd)

	tokensListCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensListCmd.Flags().BoolVar(&withPrices, "prices", false, "Include USD prices")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx := cmd.Context()

	// Get tokens with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Loading tokens..."
		s.Start()
	}

	tokens, err := rt.registry.List(ctx)
	if err == nil && withPrices {
		for _, t := range tokens {
			t.PriceUSD, _ = rt.registry.RefreshPrice(ctx, t.Address)
		}
	}
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if rt.cache != nil {
		if updated := rt.cache.UpdatedAt(); !updated.IsZero() {
			rt.log.Sugar().Debugf("local cache last written %s", updated.Format(time.RFC3339))
		}
		if err := rt.cache.SaveTokens(tokens); err != nil {
			rt.log.Sugar().Debugf("failed to cache token list: %v", err)
		}
	}

	// Apply filters
	filtered := tokens
	if filterSymbol != "" {
		var temp []*types.TokenDescriptor
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered)
	}
}

func runImportToken(cmd *cobra.Command, args []string) {
	address := strings.TrimSpace(args[0])
	if err := metadata.ValidateAddress(address); err != nil {
		printError(err)
		os.Exit(1)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching token metadata..."
	s.Start()
	token, err := rt.registry.Import(cmd.Context(), address)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if rt.cache != nil {
		if err := rt.cache.SetImage(token.Address, token.LogoURI); err != nil {
			rt.log.Sugar().Debugf("failed to cache token image: %v", err)
		}
	}

	color.Green("\n✓ Imported %s (%s)", token.Symbol, token.Name)
	displayToken(token)
}

func runLookupToken(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	token, err := rt.resolveToken(cmd.Context(), args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(token, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayToken(token)
}

func runClearCache(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	if rt.cache == nil {
		printError(fmt.Errorf("local cache is not available"))
		os.Exit(1)
	}
	if err := rt.cache.Clear(); err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess("Cleared " + rt.cache.Path())
}

func displayTokens(tokens []*types.TokenDescriptor) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90) + "\n")

	for _, token := range tokens {
		price := ""
		if token.PriceUSD > 0 {
			price = fmt.Sprintf("$%.6g", token.PriceUSD)
		}
		fmt.Printf("  %-18s  %2d decimals  %-44s  %s\n",
			color.YellowString(token.Symbol),
			token.Decimals,
			color.HiBlackString(token.Address),
			price)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}

func displayToken(token *types.TokenDescriptor) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("\n  Symbol:    %s\n", color.YellowString(token.Symbol))
	fmt.Printf("  Name:      %s\n", token.Name)
	fmt.Printf("  Mint:      %s\n", color.CyanString(token.Address))
	fmt.Printf("  Decimals:  %d\n", token.Decimals)
	fmt.Printf("  Icon:      %s\n", metadata.NormalizeImageURL(token.LogoURI))
	if token.PriceUSD > 0 {
		fmt.Printf("  Price:     $%.6g\n", token.PriceUSD)
	}
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
