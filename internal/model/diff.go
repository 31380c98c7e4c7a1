package model

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names used by ChangedFields and the transition whitelists
const (
	FieldStatus         = "status"
	FieldNumber         = "number"
	FieldSequenceYear   = "sequence_year"
	FieldIssuedAt       = "issued_at"
	FieldDueAt          = "due_at"
	FieldFinalizedAt    = "finalized_at"
	FieldSentAt         = "sent_at"
	FieldPaidAt         = "paid_at"
	FieldArchivedAt     = "archived_at"
	FieldCurrency       = "currency"
	FieldClientID       = "client_id"
	FieldSellerSnapshot = "seller_snapshot"
	FieldBuyerSnapshot  = "buyer_snapshot"
	FieldTotals         = "totals"
	FieldCreditNoteFor  = "credit_note_for"
	FieldCreditedNumber = "credited_number"
	FieldVATMention     = "vat_mention"
	FieldScenario       = "scenario"
	FieldNotes          = "notes"
	FieldItems          = "items"
	FieldUpdatedAt      = "updated_at"
)

// ChangedFields lists the document fields that differ between before and after.
// Identity fields (id, tenant, type, created_at) are reported too so a
// transition can never rewrite them.
func ChangedFields(before, after *Document) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	add("id", before.ID != after.ID)
	add("tenant_id", before.TenantID != after.TenantID)
	add("type", before.Type != after.Type)
	add("created_at", !before.CreatedAt.Equal(after.CreatedAt))
	add(FieldClientID, before.ClientID != after.ClientID)
	add(FieldStatus, before.Status != after.Status)
	add(FieldNumber, before.Number != after.Number)
	add(FieldSequenceYear, before.SequenceYear != after.SequenceYear)
	add(FieldIssuedAt, !sameTime(before.IssuedAt, after.IssuedAt))
	add(FieldDueAt, !sameTime(before.DueAt, after.DueAt))
	add(FieldFinalizedAt, !sameTime(before.FinalizedAt, after.FinalizedAt))
	add(FieldSentAt, !sameTime(before.SentAt, after.SentAt))
	add(FieldPaidAt, !sameTime(before.PaidAt, after.PaidAt))
	add(FieldArchivedAt, !sameTime(before.ArchivedAt, after.ArchivedAt))
	add(FieldCurrency, before.Currency != after.Currency)
	add(FieldSellerSnapshot, !reflect.DeepEqual(before.SellerSnapshot, after.SellerSnapshot))
	add(FieldBuyerSnapshot, !reflect.DeepEqual(before.BuyerSnapshot, after.BuyerSnapshot))
	add(FieldTotals, !sameDecimal(before.TotalNet, after.TotalNet) ||
		!sameDecimal(before.TotalTax, after.TotalTax) ||
		!sameDecimal(before.TotalGross, after.TotalGross))
	add(FieldCreditNoteFor, !sameUUID(before.CreditNoteFor, after.CreditNoteFor))
	add(FieldCreditedNumber, before.CreditedNumber != after.CreditedNumber)
	add(FieldVATMention, before.VATMention != after.VATMention)
	add(FieldScenario, before.Scenario != after.Scenario)
	add(FieldNotes, before.Notes != after.Notes)
	add(FieldItems, !sameItems(before.Items, after.Items))
	add(FieldUpdatedAt, !before.UpdatedAt.Equal(after.UpdatedAt))
	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDecimal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

func sameItems(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.DocumentID != y.DocumentID || x.Title != y.Title ||
			x.Description != y.Description || x.Unit != y.Unit || x.SortOrder != y.SortOrder {
			return false
		}
		if !x.Quantity.Equal(y.Quantity) || !x.UnitPrice.Equal(y.UnitPrice) || !x.VATRate.Equal(y.VATRate) ||
			!x.TotalNet.Equal(y.TotalNet) || !x.TotalVAT.Equal(y.TotalVAT) || !x.TotalGross.Equal(y.TotalGross) {
			return false
		}
	}
	return true
}
