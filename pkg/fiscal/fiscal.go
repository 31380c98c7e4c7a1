// Package fiscal provides a public API for issuing invoices and credit notes
// with gapless legal numbering and exporting them to fiscal standards.
//
// This package exposes the document model, the errors and the engine that
// ties lifecycle, numbering, VAT resolution, export and validation together.
//
// Example usage:
//
//	cfg, err := fiscal.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng := fiscal.NewEngine(cfg, fiscal.NewMemoryStore(), nil)
//	doc, err := eng.Documents().Finalize(ctx, draftID, fiscal.FinalizeOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := eng.Export(ctx, doc.ID, fiscal.FormatNetwork)
package fiscal

import (
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/export/audit"
	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/validator"
)

// Re-export core types for public API
type (
	Document         = model.Document
	LineItem         = model.LineItem
	Party            = model.Party
	Address          = model.Address
	Endpoint         = model.Endpoint
	BusinessIdentity = model.BusinessIdentity
	Client           = model.Client
	DocumentType     = model.DocumentType
	Status           = model.Status
	SequenceKey      = model.SequenceKey
	VATRegime        = model.VATRegime
	PartyKind        = model.PartyKind
)

// Re-export lifecycle inputs
type (
	DraftInput      = lifecycle.DraftInput
	ItemInput       = lifecycle.ItemInput
	DraftPatch      = lifecycle.DraftPatch
	FinalizeOptions = lifecycle.FinalizeOptions
	Clock           = lifecycle.Clock
)

// Re-export export and validation results
type (
	Format        = export.Format
	Report        = validator.Report
	Finding       = validator.Finding
	PeriodSummary = audit.PeriodSummary
)

// Re-export document types and statuses
const (
	DocumentTypeInvoice    = model.DocumentTypeInvoice
	DocumentTypeCreditNote = model.DocumentTypeCreditNote

	StatusDraft     = model.StatusDraft
	StatusFinalized = model.StatusFinalized
	StatusSent      = model.StatusSent
	StatusPaid      = model.StatusPaid

	RegimeStandard  = model.RegimeStandard
	RegimeFranchise = model.RegimeFranchise
	KindBusiness    = model.KindBusiness
	KindConsumer    = model.KindConsumer
)

// Re-export export formats
const (
	FormatAudit   = export.FormatAudit
	FormatHybrid  = export.FormatHybrid
	FormatNetwork = export.FormatNetwork
)

// Re-export error types
type (
	ValidationError   = model.ValidationError
	PreconditionError = model.PreconditionError
	ImmutableError    = model.ImmutableError
	EncodeError       = model.EncodeError
	ConflictError     = model.ConflictError
	NotFoundError     = model.NotFoundError
)

// Re-export sentinel errors
var (
	ErrNotFound      = model.ErrNotFound
	ErrLockTimeout   = model.ErrLockTimeout
	ErrSerialization = model.ErrSerialization
)
