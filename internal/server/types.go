package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/validator"
)

// CreateDocumentRequest creates a draft invoice
type CreateDocumentRequest struct {
	TenantID uuid.UUID     `json:"tenant_id"`
	ClientID uuid.UUID     `json:"client_id"`
	Currency string        `json:"currency,omitempty"`
	IssuedAt *time.Time    `json:"issued_at,omitempty"`
	DueAt    *time.Time    `json:"due_at,omitempty"`
	Notes    string        `json:"notes,omitempty"`
	Items    []ItemRequest `json:"items,omitempty"`
}

func (r CreateDocumentRequest) input() lifecycle.DraftInput {
	in := lifecycle.DraftInput{
		TenantID: r.TenantID,
		ClientID: r.ClientID,
		Currency: r.Currency,
		IssuedAt: r.IssuedAt,
		DueAt:    r.DueAt,
		Notes:    r.Notes,
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, item.input())
	}
	return in
}

// ItemRequest adds or replaces a line. Amounts are decimal strings.
type ItemRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
	SortOrder   *int             `json:"sort_order,omitempty"`
}

func (r ItemRequest) input() lifecycle.ItemInput {
	return lifecycle.ItemInput{
		Title:       r.Title,
		Description: r.Description,
		Unit:        r.Unit,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		VATRate:     r.VATRate,
		SortOrder:   r.SortOrder,
	}
}

// PatchDocumentRequest changes header fields of a draft
type PatchDocumentRequest struct {
	ClientID *uuid.UUID `json:"client_id,omitempty"`
	Currency *string    `json:"currency,omitempty"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

// FinalizeRequest overrides the dates of a finalization
type FinalizeRequest struct {
	IssuedAt *time.Time `json:"issued_at,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// TransitionRequest carries the optional timestamp of send, pay and archive
type TransitionRequest struct {
	At *time.Time `json:"at,omitempty"`
}

// CreditNoteRequest creates a full credit note
type CreditNoteRequest struct {
	Finalize bool `json:"finalize"`
}

// BusinessRequest stores the seller identity of a tenant
type BusinessRequest struct {
	model.Party
	PaymentTermDays int `json:"payment_term_days"`
}

// ClientRequest stores a client of a tenant
type ClientRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	model.Party
}

// DocumentList is the response of the list endpoint
type DocumentList struct {
	Documents []*model.Document `json:"documents"`
	Count     int               `json:"count"`
}

// PreviewResponse is the response of the numbering preview endpoint
type PreviewResponse struct {
	Type   model.DocumentType `json:"type"`
	Number string             `json:"number"`
}

// ValidationResponse wraps a validator report
type ValidationResponse struct {
	Valid bool `json:"valid"`
	*validator.Report
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
