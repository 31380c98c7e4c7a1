package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/vat"
)

const opFinalize = "finalize"

// FinalizeOptions overrides the issue and due dates. Unset values fall back
// to the draft's own dates, then to now and now + payment terms.
type FinalizeOptions struct {
	IssuedAt *time.Time
	DueAt    *time.Time
}

// fields finalize may write
var finalizeFields = allow(
	model.FieldStatus, model.FieldNumber, model.FieldSequenceYear,
	model.FieldIssuedAt, model.FieldDueAt, model.FieldFinalizedAt,
	model.FieldSellerSnapshot, model.FieldBuyerSnapshot, model.FieldTotals, model.FieldItems,
	model.FieldVATMention, model.FieldScenario, model.FieldUpdatedAt,
)

// Finalize turns a draft into a numbered, immutable document. Totals, the
// number, snapshots and dates are written in one transaction; on any error
// nothing is persisted and no number is consumed.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, opts FinalizeOptions) (*model.Document, error) {
	var result *model.Document
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		doc, err := tx.Document(ctx, id)
		if err != nil {
			return err
		}
		result, err = s.finalizeInTx(ctx, tx, doc, opts)
		return err
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"document_id": id.String(),
		}).WithError(err).Warn("Finalization failed")
		return nil, err
	}

	s.docLogger(result).WithFields(logrus.Fields{
		"total_net":   result.TotalNet.String(),
		"total_tax":   result.TotalTax.String(),
		"total_gross": result.TotalGross.String(),
		"scenario":    string(result.Scenario),
	}).Info("Document finalized")
	return result, nil
}

func (s *Service) finalizeInTx(ctx context.Context, tx store.Tx, doc *model.Document, opts FinalizeOptions) (*model.Document, error) {
	before := doc.Clone()

	// 1. preconditions
	if !doc.IsDraft() {
		return nil, model.NewPreconditionError(opFinalize, "status", "draft",
			fmt.Sprintf("document is %s, only drafts can be finalized", doc.Status))
	}
	if len(doc.Items) == 0 {
		return nil, model.NewPreconditionError(opFinalize, "items", "non_empty",
			"add at least one line before finalizing")
	}

	business, err := tx.Business(ctx, doc.TenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NewPreconditionError(opFinalize, "seller", "configured",
				"configure the business identity before finalizing")
		}
		return nil, err
	}
	if missing := business.Missing(); len(missing) > 0 {
		return nil, model.NewPreconditionError(opFinalize, "seller."+missing[0], "complete",
			"business identity is incomplete: missing "+strings.Join(missing, ", "))
	}

	client, err := tx.Client(ctx, doc.ClientID)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NewPreconditionError(opFinalize, "buyer", "exists",
				"the client of this document no longer exists")
		}
		return nil, err
	}
	if strings.TrimSpace(client.Name) == "" {
		return nil, model.NewPreconditionError(opFinalize, "buyer.name", "required", "client has no name")
	}

	seller := business.Snapshot()
	buyer := client.Snapshot()

	scenario := s.resolver.Resolve(vat.InputFor(seller, buyer))
	if scenario.ZeroRated() {
		for i, item := range doc.Items {
			if !item.VATRate.IsZero() {
				return nil, model.NewPreconditionError(opFinalize, fmt.Sprintf("items[%d].vat_rate", i), "scenario_rate",
					fmt.Sprintf("%s requires 0%% VAT on every line, line %q has %s%%", scenario.Key, item.Title, item.VATRate))
			}
		}
	}
	if scenario.Fallback {
		s.docLogger(doc).WithField("buyer_country", buyer.Country()).
			Warn("Unknown buyer country, treating supply as export")
	}

	now := s.now()
	issued := now
	switch {
	case opts.IssuedAt != nil:
		issued = *opts.IssuedAt
	case doc.IssuedAt != nil:
		issued = *doc.IssuedAt
	}

	terms := business.PaymentTermDays
	if terms <= 0 {
		terms = s.paymentTermDays
	}
	due := issued.AddDate(0, 0, terms)
	switch {
	case opts.DueAt != nil:
		due = *opts.DueAt
	case doc.DueAt != nil:
		due = *doc.DueAt
	}
	if due.Before(issued) {
		return nil, model.NewPreconditionError(opFinalize, "due_at", "not_before_issue",
			"due date is before the issue date")
	}

	// 2. authoritative totals
	doc.CalculateTotals()

	// 3. number, inside this transaction
	key := model.SequenceKey{Type: doc.Type, Year: now.Year()}
	number, err := s.numbers.Next(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	// 4-6. snapshots, dates, status, all in one write
	doc.Number = number
	doc.SequenceYear = key.Year
	doc.SellerSnapshot = seller
	doc.BuyerSnapshot = buyer
	doc.IssuedAt = &issued
	doc.DueAt = &due
	doc.FinalizedAt = &now
	doc.Status = model.StatusFinalized
	doc.Scenario = scenario.Key
	doc.VATMention = scenario.Mention
	doc.UpdatedAt = now

	if err := doc.CheckFinalizedInvariant(); err != nil {
		return nil, err
	}
	if err := checkWhitelist(opFinalize, before, doc, finalizeFields); err != nil {
		return nil, err
	}
	if err := tx.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
