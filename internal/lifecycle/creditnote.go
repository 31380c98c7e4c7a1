package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

const opCreditNote = "credit_note"

// CanBeCredited reports whether original may receive a credit note given
// the credit notes that already reference it. Only finalized invoices that
// have not been credited yet qualify.
func CanBeCredited(original *model.Document, existing []*model.Document) error {
	if original.IsCreditNote() {
		return model.NewPreconditionError(opCreditNote, "original.type", "invoice",
			"a credit note cannot itself be credited")
	}
	if !original.IsFinalized() {
		return model.NewPreconditionError(opCreditNote, "original.status", "finalized",
			"only finalized invoices can be credited")
	}
	if len(existing) > 0 {
		ref := existing[0].Number
		if ref == "" {
			ref = "a draft credit note"
		}
		return model.NewPreconditionError(opCreditNote, "original", "not_credited",
			"invoice "+original.Number+" is already credited by "+ref)
	}
	return nil
}

// CreateCreditNote derives a credit note from a finalized invoice. Lines
// are copied with their quantity negated; prices and rates are unchanged.
// With autoFinalize the new document is finalized in the same transaction
// that creates it.
func (s *Service) CreateCreditNote(ctx context.Context, originalID uuid.UUID, autoFinalize bool) (*model.Document, error) {
	var result *model.Document
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		original, err := tx.Document(ctx, originalID)
		if err != nil {
			return err
		}
		existing, err := tx.CreditNotesFor(ctx, originalID)
		if err != nil {
			return err
		}
		if err := CanBeCredited(original, existing); err != nil {
			return err
		}

		note := s.buildCreditNote(original)
		if err := tx.SaveDocument(ctx, note); err != nil {
			return err
		}

		if autoFinalize {
			if note, err = s.finalizeInTx(ctx, tx, note, FinalizeOptions{}); err != nil {
				return err
			}
		}
		result = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.docLogger(result).WithFields(logrus.Fields{
		"credited_number": result.CreditedNumber,
		"total_gross":     result.TotalGross.String(),
	}).Info("Credit note created")
	return result, nil
}

func (s *Service) buildCreditNote(original *model.Document) *model.Document {
	now := s.now()
	originalID := original.ID
	note := &model.Document{
		ID:             uuid.New(),
		TenantID:       original.TenantID,
		ClientID:       original.ClientID,
		Type:           model.DocumentTypeCreditNote,
		Status:         model.StatusDraft,
		Currency:       original.Currency,
		CreditNoteFor:  &originalID,
		CreditedNumber: original.Number,
		Items:          make([]model.LineItem, 0, len(original.Items)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, item := range original.Items {
		note.Items = append(note.Items, model.LineItem{
			ID:          uuid.New(),
			DocumentID:  note.ID,
			Title:       item.Title,
			Description: item.Description,
			Unit:        item.Unit,
			Quantity:    money.Neg(item.Quantity),
			UnitPrice:   item.UnitPrice,
			VATRate:     item.VATRate,
			SortOrder:   item.SortOrder,
		})
	}
	note.CalculateTotals()
	return note
}
