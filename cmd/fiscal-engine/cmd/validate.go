package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/validator"
)

var (
	validateYear     int
	validateStandard string
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate stored documents or exported files",
	Long: `Validate either the stored documents of a sequence year or exported files.

With --year the numbering of every (type, year) partition is checked for
gaps and duplicates and the totals of every finalized document are
cross-checked. With files, each one is checked structurally against
--standard, and against its XSD when FISCAL_XSD_* points to one.

Examples:
  fiscal-engine validate --year 2026
  fiscal-engine validate --standard peppol invoice.xml credit-note.xml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().IntVar(&validateYear, "year", 0, "Sequence year to check")
	validateCmd.Flags().StringVarP(&validateStandard, "standard", "s", string(export.FormatNetwork), "Format of the files (faia, facturx, peppol)")
}

// FileReport is the validation result of one file
type FileReport struct {
	File string `json:"file"`
	*validator.Report
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && validateYear == 0 {
		return fmt.Errorf("give --year or at least one file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	eng, _, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	var reports []FileReport
	if validateYear != 0 {
		report, err := eng.ValidatePeriod(ctx, validateYear)
		if err != nil {
			return err
		}
		reports = append(reports, FileReport{File: fmt.Sprintf("year %d", validateYear), Report: report})
	}

	if len(args) > 0 {
		format, err := export.ParseFormat(validateStandard)
		if err != nil {
			return err
		}
		for _, file := range args {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("error reading %s: %w", file, err)
			}
			printVerbose("Validating %s as %s\n", file, format)
			reports = append(reports, FileReport{File: file, Report: eng.ValidateXML(data, format)})
		}
	}

	allValid := true
	for _, r := range reports {
		if !r.Valid() {
			allValid = false
		}
	}

	if outputFormat == "json" {
		if err := printJSON(os.Stdout, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(r)
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func printReport(r FileReport) {
	if r.Valid() {
		fmt.Printf("✓ %s: %s (score %d)\n", r.File, r.Status, r.Score)
	} else {
		fmt.Printf("✗ %s: %s (score %d)\n", r.File, r.Status, r.Score)
	}
	for _, e := range r.Errors {
		fmt.Printf("  - [%s] %s\n", e.Code, e.Message)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  ⚠ [%s] %s\n", w.Code, w.Message)
	}
	if verbose {
		for _, i := range r.Infos {
			fmt.Printf("  · [%s] %s\n", i.Code, i.Message)
		}
	}
}
