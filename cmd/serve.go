package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zionix-swap/pkg/feeaccount"
	"zionix-swap/pkg/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fee-account server",
	Long: `Run the privileged fee-account server. It holds the funding key and
creates platform fee accounts on request from swap clients.

Requires ZIONIX_FEE_SERVER_FUNDING_SECRET and ZIONIX_SWAP_FEE_WALLET.

Examples:
  zionix serve
  ZIONIX_FEE_SERVER_LISTEN=:9000 zionix serve`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	if err := rt.cfg.ValidateForServer(); err != nil {
		printError(err)
		os.Exit(1)
	}
	owner, err := rt.feeWallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	key, err := wallet.ParseSecret(rt.cfg.FeeServer.FundingSecret)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	funder := feeaccount.NewFunder(rt.rpc, key,
		feeaccount.WithCommitment(rt.commitment),
		feeaccount.WithFunderLogger(rt.log),
	)

	if err := rt.registry.Seed(ctx); err != nil {
		rt.log.Warn("failed to seed token store", zap.Error(err))
	}

	// The fee wallet must exist natively before SOL fees can land in it.
	funded, err := funder.EnsureNativeAccount(ctx, owner, rt.cfg.FundNativeLamports())
	if err != nil {
		rt.log.Warn("failed to fund native fee account", zap.Error(err))
	} else if funded {
		rt.log.Info("funded native fee account", zap.String("owner", owner.String()))
	}

	server := feeaccount.NewServer(funder,
		feeaccount.WithAllowedOwner(owner),
		feeaccount.WithGatherer(rt.promReg),
		feeaccount.WithServerMetrics(rt.metrics),
		feeaccount.WithRequestTimeout(rt.cfg.Swap.SubmitTimeout),
		feeaccount.WithServerLogger(rt.log),
	)

	srv := &http.Server{
		Addr:              rt.cfg.FeeServer.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	color.Green("✓ Fee-account server listening on %s", rt.cfg.FeeServer.Listen)
	color.Cyan("  Funding key: %s", funder.Payer())
	color.Cyan("  Fee wallet:  %s", owner)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			printError(err)
			os.Exit(1)
		}
	case <-ctx.Done():
		color.Yellow("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.log.Error("server shutdown failed", zap.Error(err))
		}
	}
}
