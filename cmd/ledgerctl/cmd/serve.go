package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/api"
)

var serveAddr string

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve balances and the payment schedule over HTTP",
	Long: `Start the read-only JSON API.

Routes:
  GET /api/v1/balances/counterparties/{ref}
  GET /api/v1/balances/counterparties?ref=A&ref=B
  GET /api/v1/balances/bank-accounts/{ref}
  GET /api/v1/stock/{item}?warehouse=W
  GET /api/v1/schedule?as_of=YYYY-MM-DD
  GET /health

Example:
  ledgerctl serve --addr :8081`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := newApp()
	exitOnError(err, "failed to load configuration")
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	balances, err := a.balanceService(ctx)
	exitOnError(err, "failed to open ledger")

	sched, err := a.scheduleService(ctx, "")
	exitOnError(err, "failed to build schedule service")

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(balances, sched, slog.Default()).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting ledger API", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitOnError(err, "server error")
	}

	slog.Info("server stopped")
}
