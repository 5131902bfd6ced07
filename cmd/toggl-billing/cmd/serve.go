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
)

var httpAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an HTTP endpoint that triggers reconciliations",
	Long: `Start an HTTP server with two endpoints:

  GET  /healthz
  GET  /reconcile?month=1              dry run, returns the planned operations
  POST /reconcile?month=1&dry=false    applies the operations

Only one reconciliation runs at a time; concurrent requests get 409.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address (default $HTTP_ADDR or :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := httpAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	srv := a.HTTPServer(addr)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", slog.String("error", err.Error()))
	}
	slog.Info("shutting down")
	return nil
}
