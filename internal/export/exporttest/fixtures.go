// Package exporttest builds finalized documents for encoder and validator
// tests.
package exporttest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	"github.com/rezonia/fiscal-engine/internal/model"
)

// IssuedAt is the issue date of every fixture document
var IssuedAt = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

// ClientID is shared by all fixture documents so period exports list one customer
var ClientID = uuid.MustParse("7a1c2e9e-4d0b-4a43-9b83-3c1f0f2f8c11")

// Seller is a complete Luxembourg seller
func Seller() *model.Party {
	return &model.Party{
		Name:           "Atelier Lumière",
		LegalName:      "Atelier Lumière SARL",
		Address:        model.Address{Street: "12 rue du Fort", PostalCode: "L-1234", City: "Luxembourg", CountryCode: "LU"},
		VATID:          "LU12345678",
		RegistrationID: "B123456",
		Email:          "billing@atelier.lu",
		IBAN:           "LU280019400644750000",
		BIC:            "BCEELULL",
		Regime:         model.RegimeStandard,
	}
}

// Buyer is a Luxembourg business client
func Buyer() *model.Party {
	return &model.Party{
		Name:    "Acme Luxembourg SA",
		Address: model.Address{Street: "1 avenue Monterey", PostalCode: "L-2163", City: "Luxembourg", CountryCode: "LU"},
		VATID:   "LU87654321",
		Kind:    model.KindBusiness,
	}
}

// Invoice returns a finalized domestic invoice with two rates:
// 2 h x 100.00 at 17% and 3 x 12.50 at 8%, net 237.50, tax 37.00.
func Invoice(seq int) *model.Document {
	doc := finalized(model.DocumentTypeInvoice, fmt.Sprintf("F-2026-%03d", seq))
	doc.Scenario = model.ScenarioDomesticStandard
	doc.Items = []model.LineItem{
		item(doc.ID, "Consulting", "hour", "2", "100.00", "17", 0),
		item(doc.ID, "Printed catalogue", "pcs", "3", "12.50", "8", 1),
	}
	doc.CalculateTotals()
	return doc
}

// CreditNote returns the finalized full credit of inv
func CreditNote(inv *model.Document, seq int) *model.Document {
	doc := finalized(model.DocumentTypeCreditNote, fmt.Sprintf("AV-2026-%03d", seq))
	doc.Scenario = inv.Scenario
	doc.VATMention = inv.VATMention
	doc.BuyerSnapshot = inv.BuyerSnapshot.Clone()
	doc.CreditNoteFor = &inv.ID
	doc.CreditedNumber = inv.Number
	for i, it := range inv.Items {
		neg := it
		neg.ID = uuid.New()
		neg.DocumentID = doc.ID
		neg.Quantity = it.Quantity.Neg()
		neg.SortOrder = i
		doc.Items = append(doc.Items, neg)
	}
	doc.CalculateTotals()
	return doc
}

// MixedRates returns an invoice whose per-rate tax amounts round up
// separately: 10.03 at 17% and 0.50 at 3%, tax 1.7201 at internal scale
// but 1.71 + 0.02 at export precision.
func MixedRates(seq int) *model.Document {
	doc := finalized(model.DocumentTypeInvoice, fmt.Sprintf("F-2026-%03d", seq))
	doc.Scenario = model.ScenarioDomesticStandard
	doc.Items = []model.LineItem{
		item(doc.ID, "Adapter", "pcs", "1", "10.03", "17", 0),
		item(doc.ID, "Leaflet", "pcs", "1", "0.50", "3", 1),
	}
	doc.CalculateTotals()
	return doc
}

// FractionalQuantity returns an invoice whose line nets carry a third
// decimal: two lines of 0.5 x 10.01, each 5.005 at internal scale.
func FractionalQuantity(seq int) *model.Document {
	doc := finalized(model.DocumentTypeInvoice, fmt.Sprintf("F-2026-%03d", seq))
	doc.Scenario = model.ScenarioDomesticStandard
	doc.Items = []model.LineItem{
		item(doc.ID, "Storage", "day", "0.5", "10.01", "17", 0),
		item(doc.ID, "Handling", "day", "0.5", "10.01", "17", 1),
	}
	doc.CalculateTotals()
	return doc
}

// ReverseCharge returns a finalized intra-EU B2B invoice to a German buyer
func ReverseCharge(seq int) *model.Document {
	doc := finalized(model.DocumentTypeInvoice, fmt.Sprintf("F-2026-%03d", seq))
	doc.Scenario = model.ScenarioIntraB2BReverseCharge
	doc.VATMention = codelist.MentionReverseCharge
	doc.BuyerSnapshot = &model.Party{
		Name:    "Beispiel GmbH",
		Address: model.Address{Street: "Hauptstraße 5", PostalCode: "10115", City: "Berlin", CountryCode: "DE"},
		VATID:   "DE123456789",
		Kind:    model.KindBusiness,
	}
	doc.Items = []model.LineItem{
		item(doc.ID, "Consulting", "day", "1.5", "800.00", "0", 0),
	}
	doc.CalculateTotals()
	return doc
}

// Draft returns an unnumbered draft invoice
func Draft() *model.Document {
	doc := Invoice(1)
	doc.Status = model.StatusDraft
	doc.Number = ""
	doc.SequenceYear = 0
	doc.SellerSnapshot = nil
	doc.BuyerSnapshot = nil
	doc.FinalizedAt = nil
	return doc
}

func finalized(t model.DocumentType, number string) *model.Document {
	issued := IssuedAt
	due := IssuedAt.AddDate(0, 0, 30)
	finalizedAt := IssuedAt
	return &model.Document{
		ID:             uuid.New(),
		TenantID:       uuid.MustParse("0b7f7e59-7c64-4c5a-a2b8-25c0e3b6a6c1"),
		ClientID:       ClientID,
		Type:           t,
		Status:         model.StatusFinalized,
		Number:         number,
		SequenceYear:   2026,
		IssuedAt:       &issued,
		DueAt:          &due,
		FinalizedAt:    &finalizedAt,
		Currency:       "EUR",
		SellerSnapshot: Seller(),
		BuyerSnapshot:  Buyer(),
		CreatedAt:      IssuedAt,
		UpdatedAt:      IssuedAt,
	}
}

func item(docID uuid.UUID, title, unit, qty, price, rate string, order int) model.LineItem {
	return model.LineItem{
		ID:         uuid.New(),
		DocumentID: docID,
		Title:      title,
		Unit:       unit,
		Quantity:   decimal.RequireFromString(qty),
		UnitPrice:  decimal.RequireFromString(price),
		VATRate:    decimal.RequireFromString(rate),
		SortOrder:  order,
	}
}
