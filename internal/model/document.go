package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/fiscal-engine/internal/decimal"
)

// DocumentType distinguishes invoices from credit notes
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "invoice"
	DocumentTypeCreditNote DocumentType = "credit_note"
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	return t == DocumentTypeInvoice || t == DocumentTypeCreditNote
}

// Status is the lifecycle state of a document
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
)

// ScenarioKey identifies a resolved VAT scenario
type ScenarioKey string

const (
	ScenarioDomesticStandard      ScenarioKey = "domestic_standard"
	ScenarioDomesticExempt        ScenarioKey = "domestic_exempt"
	ScenarioIntraB2BReverseCharge ScenarioKey = "intra_b2b_reverse_charge"
	ScenarioIntraB2CStandard      ScenarioKey = "intra_b2c_standard"
	ScenarioExport                ScenarioKey = "export"
)

// SequenceKey identifies one numbering partition. It has no tenant field:
// numbers are unique across all tenants.
type SequenceKey struct {
	Type DocumentType
	Year int
}

func (k SequenceKey) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.Year)
}

// LineItem is one line of a document
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	DocumentID  uuid.UUID       `json:"document_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	TotalNet    decimal.Decimal `json:"total_net"`
	TotalVAT    decimal.Decimal `json:"total_vat"`
	TotalGross  decimal.Decimal `json:"total_gross"`
	SortOrder   int             `json:"sort_order"`
}

// Calculate computes net, VAT and gross for the line
func (i *LineItem) Calculate() {
	i.TotalNet = money.LineNet(i.Quantity, i.UnitPrice)
	i.TotalVAT = money.CalculateVAT(i.TotalNet, i.VATRate)
	i.TotalGross = i.TotalNet.Add(i.TotalVAT)
}

// Document is an invoice or a credit note.
//
// Number, SellerSnapshot, BuyerSnapshot and FinalizedAt are empty while the
// document is a draft and are all set by the finalize transition.
type Document struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Type           DocumentType    `json:"type"`
	Status         Status          `json:"status"`
	Number         string          `json:"number,omitempty"`
	SequenceYear   int             `json:"sequence_year,omitempty"`
	IssuedAt       *time.Time      `json:"issued_at,omitempty"`
	DueAt          *time.Time      `json:"due_at,omitempty"`
	FinalizedAt    *time.Time      `json:"finalized_at,omitempty"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	ArchivedAt     *time.Time      `json:"archived_at,omitempty"`
	Currency       string          `json:"currency"`
	SellerSnapshot *Party          `json:"seller_snapshot,omitempty"`
	BuyerSnapshot  *Party          `json:"buyer_snapshot,omitempty"`
	TotalNet       decimal.Decimal `json:"total_net"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	TotalGross     decimal.Decimal `json:"total_gross"`
	CreditNoteFor  *uuid.UUID      `json:"credit_note_for,omitempty"`
	CreditedNumber string          `json:"credited_number,omitempty"`
	VATMention     string          `json:"vat_mention,omitempty"`
	Scenario       ScenarioKey     `json:"scenario,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Items          []LineItem      `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Totals holds document-level amounts
type Totals struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}

// VATBreakdownLine aggregates all lines sharing a rate
type VATBreakdownLine struct {
	Rate   decimal.Decimal `json:"rate"`
	Base   decimal.Decimal `json:"base"`
	Amount decimal.Decimal `json:"amount"`
}

// ComputeTotals calculates every item in place and sums them.
// Gross is always net + tax; nothing is rounded after summing.
func ComputeTotals(items []LineItem) Totals {
	totals := Totals{Net: money.Zero, Tax: money.Zero}
	for i := range items {
		items[i].Calculate()
		totals.Net = totals.Net.Add(items[i].TotalNet)
		totals.Tax = totals.Tax.Add(items[i].TotalVAT)
	}
	totals.Gross = totals.Net.Add(totals.Tax)
	return totals
}

// Breakdown groups already-calculated items by VAT rate, highest rate first
func Breakdown(items []LineItem) []VATBreakdownLine {
	byRate := make(map[string]*VATBreakdownLine)
	var order []string
	for _, item := range items {
		key := item.VATRate.String()
		line, ok := byRate[key]
		if !ok {
			line = &VATBreakdownLine{Rate: item.VATRate, Base: money.Zero, Amount: money.Zero}
			byRate[key] = line
			order = append(order, key)
		}
		line.Base = line.Base.Add(item.TotalNet)
		line.Amount = line.Amount.Add(item.TotalVAT)
	}

	result := make([]VATBreakdownLine, 0, len(order))
	for _, key := range order {
		result = append(result, *byRate[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rate.GreaterThan(result[j].Rate)
	})
	return result
}

// CalculateTotals recomputes items and document totals
func (d *Document) CalculateTotals() {
	totals := ComputeTotals(d.Items)
	d.TotalNet = totals.Net
	d.TotalTax = totals.Tax
	d.TotalGross = totals.Gross
}

// Totals returns the stored document totals
func (d *Document) Totals() Totals {
	return Totals{Net: d.TotalNet, Tax: d.TotalTax, Gross: d.TotalGross}
}

// VATBreakdown returns the per-rate breakdown from the current items
func (d *Document) VATBreakdown() []VATBreakdownLine {
	return Breakdown(d.Items)
}

// IsDraft reports whether the document may still be edited
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// IsFinalized reports whether the document has passed finalization
func (d *Document) IsFinalized() bool {
	switch d.Status {
	case StatusFinalized, StatusSent, StatusPaid:
		return true
	}
	return false
}

// IsCreditNote reports whether the document is a credit note
func (d *Document) IsCreditNote() bool {
	return d.Type == DocumentTypeCreditNote
}

// SequenceKey returns the numbering partition of a finalized document
func (d *Document) SequenceKey() SequenceKey {
	return SequenceKey{Type: d.Type, Year: d.SequenceYear}
}

// CheckFinalizedInvariant verifies that number, snapshots and finalized_at
// are either all empty or all set, matching the status.
func (d *Document) CheckFinalizedInvariant() error {
	set := 0
	if d.Number != "" {
		set++
	}
	if d.SellerSnapshot != nil {
		set++
	}
	if d.BuyerSnapshot != nil {
		set++
	}
	if d.FinalizedAt != nil {
		set++
	}

	switch {
	case set == 0 && d.IsDraft():
		return nil
	case set == 4 && d.IsFinalized():
		return nil
	}
	return NewValidationError("finalized_fields", set, "all_or_nothing",
		"number, snapshots and finalized_at must be set together with the finalized status")
}

// Item returns the item with the given id
func (d *Document) Item(id uuid.UUID) (*LineItem, bool) {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return &d.Items[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.IssuedAt = cloneTime(d.IssuedAt)
	c.DueAt = cloneTime(d.DueAt)
	c.FinalizedAt = cloneTime(d.FinalizedAt)
	c.SentAt = cloneTime(d.SentAt)
	c.PaidAt = cloneTime(d.PaidAt)
	c.ArchivedAt = cloneTime(d.ArchivedAt)
	c.SellerSnapshot = d.SellerSnapshot.Clone()
	c.BuyerSnapshot = d.BuyerSnapshot.Clone()
	if d.CreditNoteFor != nil {
		id := *d.CreditNoteFor
		c.CreditNoteFor = &id
	}
	if d.Items != nil {
		c.Items = make([]LineItem, len(d.Items))
		copy(c.Items, d.Items)
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
