package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/model"
)

var previewCmd = &cobra.Command{
	Use:   "preview [invoice|credit_note]",
	Short: "Show the next number of a sequence",
	Long: `Show the number the next finalization would receive this year.
The answer is advisory: a concurrent finalization may take it first.

Examples:
  fiscal-engine preview
  fiscal-engine preview credit_note`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	types := []model.DocumentType{model.DocumentTypeInvoice, model.DocumentTypeCreditNote}
	if len(args) == 1 {
		t := model.DocumentType(args[0])
		if !t.Valid() {
			return fmt.Errorf("unknown document type %q (invoice, credit_note)", args[0])
		}
		types = []model.DocumentType{t}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eng, _, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	next := make(map[model.DocumentType]string, len(types))
	for _, t := range types {
		number, err := eng.Documents().PreviewNumber(ctx, t)
		if err != nil {
			return err
		}
		next[t] = number
	}

	if outputFormat == "json" {
		return printJSON(os.Stdout, next)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNEXT")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%s\n", t, next[t])
	}
	return w.Flush()
}
