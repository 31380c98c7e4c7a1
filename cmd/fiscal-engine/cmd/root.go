package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/config"
	"github.com/rezonia/fiscal-engine/internal/engine"
	"github.com/rezonia/fiscal-engine/internal/logging"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fiscal-engine",
	Short: "Finalize invoices and export them to fiscal standards",
	Long: `Fiscal Engine issues legally numbered invoices and credit notes and
exports them to the audit and e-invoicing formats.

Supports:
  - Gapless numbering per document type and year (F-2026-001, AV-2026-001)
  - FAIA audit files (SAF-T based)
  - Factur-X / ZUGFeRD CII, optionally embedded in a PDF
  - Peppol BIS Billing 3.0 UBL

Configuration is read from the environment and an optional .env file.
Without PGHOST documents are kept in memory for the lifetime of the process.

Examples:
  # Start the HTTP API
  fiscal-engine serve

  # Export a document as Peppol UBL
  fiscal-engine export 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --to peppol -o invoice.xml

  # Audit file for the first quarter
  fiscal-engine audit --from 2026-01-01 --to 2026-03-31 -o faia.xml

  # Check the numbering of a year
  fiscal-engine validate --year 2026`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "Output format (json, table)")
}

// loadConfig reads the environment and builds the logger. Logs go to stderr
// so that stdout stays usable for exported files.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := logging.Setup(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

func openEngine(ctx context.Context) (*engine.Engine, *config.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// writeOutput writes data to path, or stdout when path is empty or "-"
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	printVerbose("Wrote %d bytes to %s\n", len(data), path)
	return nil
}
