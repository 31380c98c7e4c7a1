package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/vat"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var maxRate = decimal.NewFromInt(100)

// DraftInput creates a draft invoice
type DraftInput struct {
	TenantID uuid.UUID
	ClientID uuid.UUID
	Currency string
	IssuedAt *time.Time
	DueAt    *time.Time
	Notes    string
	Items    []ItemInput
}

// ItemInput adds or replaces a line. A nil VATRate takes the rate of the
// VAT scenario currently resolved for the seller and client.
type ItemInput struct {
	Title       string
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     *decimal.Decimal
	SortOrder   *int
}

// DraftPatch changes header fields of a draft. Nil fields are left alone.
type DraftPatch struct {
	ClientID *uuid.UUID
	Currency *string
	IssuedAt *time.Time
	DueAt    *time.Time
	Notes    *string
}

// CreateDraft creates a new draft invoice
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*model.Document, error) {
	if in.TenantID == uuid.Nil {
		return nil, model.NewValidationError("tenant_id", nil, "required", "tenant is required")
	}
	if in.ClientID == uuid.Nil {
		return nil, model.NewValidationError("client_id", nil, "required", "client is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, model.NewValidationError("currency", in.Currency, "iso4217", "must be a three-letter currency code")
	}

	now := s.now()
	doc := &model.Document{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		ClientID:  in.ClientID,
		Type:      model.DocumentTypeInvoice,
		Status:    model.StatusDraft,
		Currency:  currency,
		IssuedAt:  in.IssuedAt,
		DueAt:     in.DueAt,
		Notes:     in.Notes,
		Items:     []model.LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.Client(ctx, in.ClientID); err != nil {
			return err
		}
		for _, item := range in.Items {
			if err := s.appendItem(ctx, tx, doc, item); err != nil {
				return err
			}
		}
		doc.CalculateTotals()
		return tx.SaveDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.docLogger(doc).Info("Draft created")
	return doc, nil
}

// AddItem appends a line to a draft
func (s *Service) AddItem(ctx context.Context, docID uuid.UUID, in ItemInput) (*model.Document, error) {
	return s.editDraft(ctx, docID, "add_item", func(tx store.Tx, doc *model.Document) error {
		return s.appendItem(ctx, tx, doc, in)
	})
}

// UpdateItem replaces a line of a draft
func (s *Service) UpdateItem(ctx context.Context, docID, itemID uuid.UUID, in ItemInput) (*model.Document, error) {
	return s.editDraft(ctx, docID, "update_item", func(tx store.Tx, doc *model.Document) error {
		item, ok := doc.Item(itemID)
		if !ok {
			return model.NewNotFoundError("item", itemID.String())
		}
		rate, err := s.itemRate(ctx, tx, doc, in.VATRate)
		if err != nil {
			return err
		}
		if err := validateItem(doc.Type, in, rate); err != nil {
			return err
		}
		item.Title = strings.TrimSpace(in.Title)
		item.Description = in.Description
		item.Unit = in.Unit
		item.Quantity = in.Quantity
		item.UnitPrice = in.UnitPrice
		item.VATRate = rate
		if in.SortOrder != nil {
			item.SortOrder = *in.SortOrder
		}
		return nil
	})
}

// RemoveItem deletes a line of a draft
func (s *Service) RemoveItem(ctx context.Context, docID, itemID uuid.UUID) (*model.Document, error) {
	return s.editDraft(ctx, docID, "remove_item", func(_ store.Tx, doc *model.Document) error {
		for i := range doc.Items {
			if doc.Items[i].ID == itemID {
				doc.Items = append(doc.Items[:i], doc.Items[i+1:]...)
				return nil
			}
		}
		return model.NewNotFoundError("item", itemID.String())
	})
}

// UpdateDraft changes header fields of a draft
func (s *Service) UpdateDraft(ctx context.Context, docID uuid.UUID, patch DraftPatch) (*model.Document, error) {
	return s.editDraft(ctx, docID, "update", func(tx store.Tx, doc *model.Document) error {
		if patch.ClientID != nil {
			if _, err := tx.Client(ctx, *patch.ClientID); err != nil {
				return err
			}
			doc.ClientID = *patch.ClientID
		}
		if patch.Currency != nil {
			currency := strings.ToUpper(strings.TrimSpace(*patch.Currency))
			if !currencyPattern.MatchString(currency) {
				return model.NewValidationError("currency", *patch.Currency, "iso4217", "must be a three-letter currency code")
			}
			doc.Currency = currency
		}
		if patch.IssuedAt != nil {
			t := *patch.IssuedAt
			doc.IssuedAt = &t
		}
		if patch.DueAt != nil {
			t := *patch.DueAt
			doc.DueAt = &t
		}
		if patch.Notes != nil {
			doc.Notes = *patch.Notes
		}
		return nil
	})
}

// editDraft loads and locks the document, refuses anything but a draft,
// applies fn and saves with recomputed totals
func (s *Service) editDraft(ctx context.Context, docID uuid.UUID, op string, fn func(store.Tx, *model.Document) error) (*model.Document, error) {
	var result *model.Document
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		doc, err := tx.Document(ctx, docID)
		if err != nil {
			return err
		}
		if !doc.IsDraft() {
			return model.NewImmutableError(doc.ID.String(), doc.Status, op)
		}

		if err := fn(tx, doc); err != nil {
			return err
		}

		doc.CalculateTotals()
		doc.UpdatedAt = s.now()
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return err
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.docLogger(result).WithField("operation", op).Debug("Draft updated")
	return result, nil
}

func (s *Service) appendItem(ctx context.Context, tx store.Tx, doc *model.Document, in ItemInput) error {
	rate, err := s.itemRate(ctx, tx, doc, in.VATRate)
	if err != nil {
		return err
	}
	if err := validateItem(doc.Type, in, rate); err != nil {
		return err
	}

	sortOrder := len(doc.Items)
	if n := len(doc.Items); n > 0 && doc.Items[n-1].SortOrder >= sortOrder {
		sortOrder = doc.Items[n-1].SortOrder + 1
	}
	if in.SortOrder != nil {
		sortOrder = *in.SortOrder
	}

	doc.Items = append(doc.Items, model.LineItem{
		ID:          uuid.New(),
		DocumentID:  doc.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Unit:        in.Unit,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		VATRate:     rate,
		SortOrder:   sortOrder,
	})
	return nil
}

// itemRate returns the explicit rate or the rate of the scenario the live
// seller and client resolve to right now
func (s *Service) itemRate(ctx context.Context, tx store.Tx, doc *model.Document, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}

	var seller, buyer *model.Party
	if b, err := tx.Business(ctx, doc.TenantID); err == nil {
		seller = &b.Party
	}
	c, err := tx.Client(ctx, doc.ClientID)
	if err != nil {
		return money.Zero, err
	}
	buyer = c.Snapshot()
	return s.resolver.Resolve(vat.InputFor(seller, buyer)).Rate, nil
}

func validateItem(docType model.DocumentType, in ItemInput, rate decimal.Decimal) error {
	if strings.TrimSpace(in.Title) == "" {
		return model.NewValidationError("title", nil, "required", "item title is required")
	}
	if in.Quantity.IsZero() {
		return model.NewValidationError("quantity", in.Quantity.String(), "non_zero", "quantity must not be zero")
	}
	if docType == model.DocumentTypeInvoice && in.Quantity.IsNegative() {
		return model.NewValidationError("quantity", in.Quantity.String(), "positive", "invoice quantities must be positive; issue a credit note instead")
	}
	if in.UnitPrice.IsNegative() {
		return model.NewValidationError("unit_price", in.UnitPrice.String(), "non_negative", "unit price must not be negative")
	}
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return model.NewValidationError("vat_rate", rate.String(), "percentage", fmt.Sprintf("VAT rate must be between 0 and %s", maxRate))
	}
	return nil
}
