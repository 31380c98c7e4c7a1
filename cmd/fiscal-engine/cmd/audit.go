package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	auditFrom   string
	auditTo     string
	auditTenant string
	auditOutput string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Produce the audit file for a period",
	Long: `Produce the FAIA audit file of every finalized document issued between
--from and --to, both days included. The file goes to --output; the period
summary (counts, totals, numbering gaps) is printed on stdout.

Examples:
  fiscal-engine audit --from 2026-01-01 --to 2026-03-31 -o faia-q1.xml
  fiscal-engine audit --from 2026-03-01 --to 2026-03-31 --tenant <id> -f json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditFrom, "from", "", "First day of the period (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "Last day of the period (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&auditTenant, "tenant", "", "Restrict to one tenant")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Audit file destination")
	_ = auditCmd.MarkFlagRequired("from")
	_ = auditCmd.MarkFlagRequired("to")
	_ = auditCmd.MarkFlagRequired("output")
}

func runAudit(cmd *cobra.Command, args []string) error {
	from, err := time.Parse(dateLayout, auditFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse(dateLayout, auditTo)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	var tenant *uuid.UUID
	if auditTenant != "" {
		id, err := uuid.Parse(auditTenant)
		if err != nil {
			return fmt.Errorf("invalid --tenant: %w", err)
		}
		tenant = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	eng, _, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	data, summary, err := eng.AuditPeriod(ctx, tenant, from, to)
	if err != nil {
		return err
	}
	if err := writeOutput(auditOutput, data); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(os.Stdout, summary)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Period:\t%s .. %s\n", summary.Start, summary.End)
	fmt.Fprintf(w, "Documents:\t%d (%d invoices, %d credit notes)\n", summary.Documents, summary.Invoices, summary.CreditNotes)
	fmt.Fprintf(w, "Net:\t%s\n", summary.TotalNet.StringFixed(2))
	fmt.Fprintf(w, "Tax:\t%s\n", summary.TotalTax.StringFixed(2))
	fmt.Fprintf(w, "Gross:\t%s\n", summary.TotalGross.StringFixed(2))
	if summary.SequenceValid {
		fmt.Fprintln(w, "Numbering:\tgapless")
	} else {
		fmt.Fprintf(w, "Numbering:\tgaps %s duplicates %s\n",
			strings.Join(summary.Gaps, ", "), strings.Join(summary.Duplicates, ", "))
	}
	return w.Flush()
}
