package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/export"
)

var (
	exportTo     string
	exportOutput string
	exportPDF    string
)

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Export a finalized document",
	Long: `Encode a finalized document in one of the supported formats.

Formats:
  - faia     national audit file (SAF-T based), one document
  - facturx  Factur-X / ZUGFeRD CII; with --pdf the XML is embedded in the PDF
  - peppol   Peppol BIS Billing 3.0 UBL

Examples:
  fiscal-engine export <id> --to peppol -o invoice.xml
  fiscal-engine export <id> --to facturx --pdf invoice.pdf -o invoice-facturx.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportTo, "to", string(export.FormatNetwork), "Export format (faia, facturx, peppol)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportPDF, "pdf", "", "PDF to embed the Factur-X XML in")
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	format, err := export.ParseFormat(exportTo)
	if err != nil {
		return err
	}
	if exportPDF != "" && format != export.FormatHybrid {
		return fmt.Errorf("--pdf only applies to %s", export.FormatHybrid)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	eng, _, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if exportPDF != "" {
		pdf, err := os.Open(exportPDF)
		if err != nil {
			return fmt.Errorf("error opening %s: %w", exportPDF, err)
		}
		defer pdf.Close()

		var out bytes.Buffer
		if err := eng.ExportHybridPDF(ctx, id, pdf, &out); err != nil {
			return err
		}
		return writeOutput(exportOutput, out.Bytes())
	}

	result, err := eng.Export(ctx, id, format)
	if err != nil {
		return err
	}
	printVerbose("%s sha256=%s cached=%t\n", result.Filename, result.Checksum, result.Cached)
	return writeOutput(exportOutput, result.Data)
}
