package model

import (
	"strings"

	"github.com/google/uuid"
)

// VATRegime is the seller's VAT status
type VATRegime string

const (
	RegimeStandard  VATRegime = "standard"
	RegimeFranchise VATRegime = "franchise"
)

// PartyKind tells businesses from consumers
type PartyKind string

const (
	KindBusiness PartyKind = "b2b"
	KindConsumer PartyKind = "b2c"
)

// Address is a postal address
type Address struct {
	Street      string `json:"street,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Endpoint is an e-invoicing network address, e.g. scheme "0088" + GLN
type Endpoint struct {
	Scheme string `json:"scheme"`
	ID     string `json:"id"`
}

// Party is the identity of a seller or buyer. Stored on a finalized
// document it is a snapshot and never changes afterwards.
type Party struct {
	Name           string    `json:"name"`
	LegalName      string    `json:"legal_name,omitempty"`
	Address        Address   `json:"address"`
	VATID          string    `json:"vat_id,omitempty"`
	RegistrationID string    `json:"registration_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	IBAN           string    `json:"iban,omitempty"`
	BIC            string    `json:"bic,omitempty"`
	Endpoint       *Endpoint `json:"endpoint,omitempty"`
	Regime         VATRegime `json:"regime,omitempty"`
	Kind           PartyKind `json:"kind,omitempty"`
	Reference      string    `json:"reference,omitempty"`
}

// Clone returns a deep copy
func (p *Party) Clone() *Party {
	if p == nil {
		return nil
	}
	c := *p
	if p.Endpoint != nil {
		e := *p.Endpoint
		c.Endpoint = &e
	}
	return &c
}

// DisplayName prefers the legal name
func (p *Party) DisplayName() string {
	if p.LegalName != "" {
		return p.LegalName
	}
	return p.Name
}

// Country returns the upper-cased country code
func (p *Party) Country() string {
	return strings.ToUpper(strings.TrimSpace(p.Address.CountryCode))
}

// HasTaxID reports whether the party carries a VAT number
func (p *Party) HasTaxID() bool {
	return strings.TrimSpace(p.VATID) != ""
}

// BusinessIdentity is the live seller record owned by a tenant
type BusinessIdentity struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Party
	PaymentTermDays int `json:"payment_term_days"`
}

// Missing lists the fields a seller identity needs before it can issue documents
func (b *BusinessIdentity) Missing() []string {
	var missing []string
	if strings.TrimSpace(b.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(b.LegalName) == "" {
		missing = append(missing, "legal_name")
	}
	if strings.TrimSpace(b.Address.Street) == "" {
		missing = append(missing, "address.street")
	}
	if strings.TrimSpace(b.Address.City) == "" {
		missing = append(missing, "address.city")
	}
	if b.Country() == "" {
		missing = append(missing, "address.country_code")
	}
	if b.Regime == RegimeFranchise {
		if strings.TrimSpace(b.RegistrationID) == "" && !b.HasTaxID() {
			missing = append(missing, "registration_id")
		}
	} else if !b.HasTaxID() {
		missing = append(missing, "vat_id")
	}
	return missing
}

// Complete reports whether nothing is missing
func (b *BusinessIdentity) Complete() bool {
	return len(b.Missing()) == 0
}

// Snapshot freezes the identity for a document
func (b *BusinessIdentity) Snapshot() *Party {
	p := b.Party
	if p.Regime == "" {
		p.Regime = RegimeStandard
	}
	return p.Clone()
}

// Client is the live buyer record
type Client struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Party
}

// Snapshot freezes the client for a document
func (c *Client) Snapshot() *Party {
	p := c.Party
	if p.Kind == "" {
		p.Kind = KindConsumer
		if p.HasTaxID() {
			p.Kind = KindBusiness
		}
	}
	return p.Clone()
}
