package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-engine/internal/model"
)

var (
	sequenceType string
	sequenceYear int
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Inspect and repair numbering partitions",
}

var sequenceRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Reset a partition counter from the issued numbers",
	Long: `Set the counter of a (type, year) partition to the highest number
actually issued. Use it after restoring a backup or importing documents;
it never renumbers anything.

Examples:
  fiscal-engine sequence rebuild --type invoice --year 2026`,
	Args: cobra.NoArgs,
	RunE: runSequenceRebuild,
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
	sequenceCmd.AddCommand(sequenceRebuildCmd)

	sequenceRebuildCmd.Flags().StringVar(&sequenceType, "type", string(model.DocumentTypeInvoice), "Document type (invoice, credit_note)")
	sequenceRebuildCmd.Flags().IntVar(&sequenceYear, "year", time.Now().Year(), "Sequence year")
}

func runSequenceRebuild(cmd *cobra.Command, args []string) error {
	key := model.SequenceKey{Type: model.DocumentType(sequenceType), Year: sequenceYear}
	if !key.Type.Valid() {
		return fmt.Errorf("unknown document type %q (invoice, credit_note)", sequenceType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	eng, _, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	last, err := eng.Documents().RebuildSequence(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf("%s: counter set to %d\n", key, last)
	return nil
}
