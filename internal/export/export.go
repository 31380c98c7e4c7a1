// Package export defines the encoder contract shared by the three fiscal
// formats and the read-only view of a finalized document they encode from.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/model"
)

// Format identifies an export dialect
type Format string

const (
	// FormatAudit is the national audit file (FAIA, SAF-T based)
	FormatAudit Format = "faia"
	// FormatHybrid is the Factur-X / ZUGFeRD CII tree
	FormatHybrid Format = "facturx"
	// FormatNetwork is Peppol BIS Billing 3.0 UBL
	FormatNetwork Format = "peppol"
)

// Namespaces checked by the structural validator
const (
	NamespaceAudit      = "urn:OECD:StandardAuditFile-Taxation/2.00"
	NamespaceCII        = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NamespaceUBLInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceUBLCredit  = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
)

// Encoder turns one finalized document into bytes. Implementations are
// pure: the same document always yields the same output.
type Encoder interface {
	Format() Format

	Encode(doc *model.Document) ([]byte, error)
}

// Registry holds the encoders known to the engine
type Registry struct {
	encoders map[Format]Encoder
}

// NewRegistry creates a registry with the given encoders
func NewRegistry(encoders ...Encoder) *Registry {
	r := &Registry{encoders: make(map[Format]Encoder, len(encoders))}
	for _, e := range encoders {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the encoder for its format
func (r *Registry) Register(e Encoder) {
	r.encoders[e.Format()] = e
}

// Get returns the encoder for a format
func (r *Registry) Get(f Format) (Encoder, error) {
	e, ok := r.encoders[f]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (known: %s)", f, strings.Join(r.names(), ", "))
	}
	return e, nil
}

// Formats lists the registered formats in a stable order
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.encoders))
	for f := range r.encoders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func (r *Registry) names() []string {
	formats := r.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// ParseFormat converts user input to a Format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAudit, FormatHybrid, FormatNetwork:
		return f, nil
	case "saft", "audit":
		return FormatAudit, nil
	case "cii", "zugferd":
		return FormatHybrid, nil
	case "ubl":
		return FormatNetwork, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Filename is the suggested file name: <type>-<number>-<format>.xml
func Filename(f Format, doc *model.Document) string {
	number := doc.Number
	if number == "" {
		number = doc.ID.String()
	}
	return fmt.Sprintf("%s-%s-%s.xml", doc.Type, number, f)
}

// RequireFinalized rejects drafts and documents missing finalization data
func RequireFinalized(doc *model.Document, f Format) error {
	if doc == nil {
		return model.NewEncodeError(string(f), "document", "no document given")
	}
	if !doc.IsFinalized() {
		return model.NewEncodeError(string(f), "status", fmt.Sprintf("document is %s, only finalized documents can be exported", doc.Status))
	}
	if doc.Number == "" {
		return model.NewEncodeError(string(f), "number", "document has no number")
	}
	if doc.IssuedAt == nil {
		return model.NewEncodeError(string(f), "issued_at", "document has no issue date")
	}
	if len(doc.Items) == 0 {
		return model.NewEncodeError(string(f), "items", "document has no lines")
	}
	if doc.Currency == "" {
		return model.NewEncodeError(string(f), "currency", "document has no currency")
	}
	return nil
}

// View is the read-only projection an encoder works from. Amounts of a
// credit note are exposed positive when the format carries the sign in its
// document type.
//
// Every amount an encoder writes is taken from the export-precision fields
// below, which are built bottom-up from the rounded line nets. Document
// totals are therefore the sums of the values written in the same file.
type View struct {
	Doc      *model.Document
	Category codelist.TaxCategory
	// Lines holds each item's net at export precision, in item order
	Lines []decimal.Decimal
	// Breakdown groups the rounded line nets per rate; each tax amount is
	// rounded once from its rounded base
	Breakdown  []model.VATBreakdownLine
	LineTotal  decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal

	format Format
	sign   decimal.Decimal
}

// NewView checks the document is finalized and prepares the shared data.
// With unsigned set, credit-note amounts are negated back to positive.
func NewView(doc *model.Document, f Format, unsigned bool) (*View, error) {
	if err := RequireFinalized(doc, f); err != nil {
		return nil, err
	}
	sign := decimal.NewFromInt(1)
	if unsigned && doc.IsCreditNote() {
		sign = decimal.NewFromInt(-1)
	}

	lines := make([]decimal.Decimal, len(doc.Items))
	for i, item := range doc.Items {
		lines[i] = money.RoundExport(item.TotalNet)
	}
	breakdown := exportBreakdown(doc.Items, lines)
	tax := money.Zero
	for _, b := range breakdown {
		tax = tax.Add(b.Amount)
	}
	net := money.Sum(lines)

	return &View{
		Doc:        doc,
		Category:   codelist.CategoryFor(doc.Scenario),
		Lines:      lines,
		Breakdown:  breakdown,
		LineTotal:  net,
		TaxTotal:   tax,
		GrandTotal: net.Add(tax),
		format:     f,
		sign:       sign,
	}, nil
}

func exportBreakdown(items []model.LineItem, nets []decimal.Decimal) []model.VATBreakdownLine {
	rounded := make([]model.LineItem, len(items))
	for i, item := range items {
		rounded[i] = model.LineItem{VATRate: item.VATRate, TotalNet: nets[i], TotalVAT: money.Zero}
	}
	breakdown := model.Breakdown(rounded)
	for i := range breakdown {
		breakdown[i].Amount = money.ExportVAT(breakdown[i].Base, breakdown[i].Rate)
	}
	return breakdown
}

// Amount renders a monetary value at export precision
func (v *View) Amount(d decimal.Decimal) string {
	return money.Format2(v.signed(d))
}

// Quantity renders a line quantity
func (v *View) Quantity(d decimal.Decimal) string {
	return money.FormatQuantity(v.signed(d))
}

func (v *View) signed(d decimal.Decimal) decimal.Decimal {
	if v.sign.IsNegative() {
		return money.Neg(d)
	}
	return d
}

// Price renders a unit price with two to four fraction digits
func Price(d decimal.Decimal) string {
	r := money.Round(d)
	if r.Equal(r.Round(2)) {
		return r.StringFixed(2)
	}
	return r.String()
}

// LineCategory is the tax category for one rate
func (v *View) LineCategory(rate decimal.Decimal) codelist.TaxCategory {
	return codelist.LineCategory(v.Category, rate)
}

// ExemptionReason is the legal text attached to exempt categories
func (v *View) ExemptionReason() string {
	if v.Doc.VATMention == "" {
		return ""
	}
	return codelist.ExemptionReason(v.Doc.VATMention)
}

// Fail builds an EncodeError for this view's format
func (v *View) Fail(field, message string) error {
	return model.NewEncodeError(string(v.format), field, message)
}

// Date renders YYYY-MM-DD, or "" for nil
func Date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// CompactDate renders YYYYMMDD (UN/CEFACT format 102), or "" for nil
func CompactDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("20060102")
}

// RequireParties enforces the party data EN 16931 makes mandatory for the
// CII and UBL encoders
func (v *View) RequireParties() error {
	doc := v.Doc
	seller, buyer := doc.SellerSnapshot, doc.BuyerSnapshot

	if seller == nil {
		return v.Fail("seller", "document has no seller snapshot")
	}
	if strings.TrimSpace(seller.LegalName) == "" {
		return v.Fail("seller.legal_name", "seller legal name is mandatory")
	}
	if seller.Country() == "" {
		return v.Fail("seller.address.country_code", "seller country is mandatory")
	}
	if v.Category != codelist.CategoryExempt && !seller.HasTaxID() {
		return v.Fail("seller.vat_id", fmt.Sprintf("seller VAT number is mandatory for tax category %s", v.Category))
	}

	if buyer == nil || strings.TrimSpace(buyer.Name) == "" {
		return v.Fail("buyer.name", "buyer name is mandatory")
	}
	if buyer.Country() == "" {
		return v.Fail("buyer.address.country_code", "buyer country is mandatory")
	}
	if codelist.RequiresBuyerVATID(v.Category) && !buyer.HasTaxID() {
		return v.Fail("buyer.vat_id", fmt.Sprintf("buyer VAT number is mandatory for tax category %s", v.Category))
	}

	if doc.IsCreditNote() && doc.CreditedNumber == "" {
		return v.Fail("credited_number", "credit note does not reference the invoice it corrects")
	}
	return nil
}
