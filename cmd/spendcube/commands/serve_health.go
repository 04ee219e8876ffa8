package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YvodeRooij/spendcube/internal/health"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/spf13/cobra"
)

var healthAddr string

var serveHealthCmd = &cobra.Command{
	Use:   "serve-health",
	Short: "Serve GET /healthz for the checkpoint backend",
	Long: `Serve an HTTP health endpoint reporting whether the checkpoint backend
selected by the environment is usable. Responds 200 when healthy and 503
otherwise, with a JSON body {status, backend, error}.`,
	RunE: runServeHealth,
}

func init() {
	serveHealthCmd.Flags().StringVar(&healthAddr, "addr", health.DefaultAddr, "Listen address")
	rootCmd.AddCommand(serveHealthCmd)
}

func runServeHealth(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := newFactory()
	defer factory.Shutdown()

	server := health.NewServer(factory, healthAddr)
	if err := server.Start(); err != nil {
		return err
	}
	printer.Info("Serving /healthz on %s\n", healthAddr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
