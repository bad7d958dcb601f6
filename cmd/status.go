package cmd

import (
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
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a swap transaction",
	Long: `Check the confirmation status of a submitted swap by its transaction signature.

Examples:
  zionix status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  zionix status <signature> --watch
  zionix status <signature> --watch --interval 2`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until finalized")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid signature: %w", err))
		os.Exit(1)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	if watchStatus {
		watchSwapStatus(rt.rpc, sig, jsonOutput)
	} else {
		checkSwapStatus(rt.rpc, sig, jsonOutput)
	}
}

func checkSwapStatus(client chain.RPC, sig solana.Signature, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	status, err := chain.SignatureStatus(context.Background(), client, sig)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status)
	}
}

func watchSwapStatus(client chain.RPC, sig solana.Signature, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap status (Signature: %s)\n", color.CyanString(sig.String()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, err := chain.SignatureStatus(ctx, client, sig)
		switch {
		case errors.Is(err, chain.ErrSignatureUnknown):
			color.Yellow("Transaction not found yet...")
		case err != nil:
			color.Red("Error: %v", err)
		default:
			displayStatus(status)
			if status.Err != "" || status.ConfirmationStatus == "finalized" {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayStatus(status *types.SwapStatus) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	state := status.ConfirmationStatus
	if status.Err != "" {
		state = "failed"
	}

	fmt.Printf("\n  Signature:       %s\n", color.CyanString(status.Signature))
	fmt.Printf("  Status:          %s\n", getColoredStatus(state))
	fmt.Printf("  Slot:            %d\n", status.Slot)
	if status.Confirmations != nil {
		fmt.Printf("  Confirmations:   %d\n", *status.Confirmations)
	}
	if status.Err != "" {
		fmt.Printf("  Error:           %s\n", color.RedString(status.Err))
	}
	fmt.Printf("  Explorer:        %s\n", color.HiBlackString(solscanTxURL(status.Signature)))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "FINALIZED":
		return color.GreenString(status)
	case "CONFIRMED", "PROCESSED":
		return color.YellowString(status)
	case "FAILED":
		return color.RedString(status)
	default:
		return status
	}
}
