package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/engine"
	"github.com/rezonia/fiscal-engine/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The API provides endpoints for:
  - POST /api/v1/documents                      - Create a draft
  - POST /api/v1/documents/:id/finalize         - Number and freeze a draft
  - POST /api/v1/documents/:id/credit-note      - Credit a finalized invoice
  - GET  /api/v1/documents/:id/export/:format   - Export (faia, facturx, peppol)
  - GET  /api/v1/numbering/preview              - Next number of a sequence
  - POST /api/v1/validate?format=               - Structural check of a file
  - GET  /api/v1/audit?from=&to=                - Audit file for a period
  - GET  /health                                - Health check

Flags override FISCAL_ADDRESS, FISCAL_DEBUG and the timeouts from the environment.

Examples:
  fiscal-engine serve
  fiscal-engine serve --address :9090 --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serverAddr != "" {
		cfg.Server.Address = serverAddr
	}
	if serverDebug {
		cfg.Server.Debug = true
	}
	if readTimeout > 0 {
		cfg.Server.ReadTimeout = readTimeout
	}
	if writeTimeout > 0 {
		cfg.Server.WriteTimeout = writeTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	logger.WithField("formats", eng.Formats()).Info("Starting Fiscal Engine")
	return server.NewServer(&cfg.Server, eng, logger).Run(ctx)
}
