// Package ubl encodes finalized documents as Peppol BIS Billing 3.0 UBL 2.1
// Invoice or CreditNote documents.
package ubl

import (
	"encoding/xml"
	"strconv"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/model"
)

const (
	nsCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	// DefaultCustomizationID is the Peppol BIS Billing 3.0 customization
	DefaultCustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	// DefaultProfileID is the Peppol billing process
	DefaultProfileID = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"
)

// Options sets the Peppol identifiers written in the header
type Options struct {
	CustomizationID string
	ProfileID       string
}

// Encoder produces Peppol UBL
type Encoder struct {
	opts Options
}

// New creates an encoder; empty options take the Peppol BIS 3.0 defaults
func New(opts Options) *Encoder {
	if opts.CustomizationID == "" {
		opts.CustomizationID = DefaultCustomizationID
	}
	if opts.ProfileID == "" {
		opts.ProfileID = DefaultProfileID
	}
	return &Encoder{opts: opts}
}

// Format returns export.FormatNetwork
func (e *Encoder) Format() export.Format {
	return export.FormatNetwork
}

// Encode renders doc. Credit notes get the CreditNote root with positive
// amounts and a billing reference to the corrected invoice.
func (e *Encoder) Encode(doc *model.Document) ([]byte, error) {
	v, err := export.NewView(doc, export.FormatNetwork, true)
	if err != nil {
		return nil, err
	}
	if err := v.RequireParties(); err != nil {
		return nil, err
	}

	out := xmlDocument{
		Cac:              nsCAC,
		Cbc:              nsCBC,
		CustomizationID:  e.opts.CustomizationID,
		ProfileID:        e.opts.ProfileID,
		ID:               doc.Number,
		IssueDate:        export.Date(doc.IssuedAt),
		DocumentCurrency: doc.Currency,
		BuyerReference:   buyerReference(doc),
		SupplierParty:    xmlPartyWrapper{Party: party(doc.SellerSnapshot)},
		CustomerParty:    xmlPartyWrapper{Party: party(doc.BuyerSnapshot)},
		PaymentMeans:     paymentMeans(v),
		TaxTotal:         taxTotal(v),
		LegalMonetaryTotal: xmlMonetaryTotal{
			LineExtensionAmount: amount(v, v.Amount(v.LineTotal)),
			TaxExclusiveAmount:  amount(v, v.Amount(v.LineTotal)),
			TaxInclusiveAmount:  amount(v, v.Amount(v.GrandTotal)),
			PayableAmount:       amount(v, v.Amount(v.GrandTotal)),
		},
	}

	if reason := v.ExemptionReason(); reason != "" {
		out.Notes = append(out.Notes, reason)
	}
	if doc.Notes != "" {
		out.Notes = append(out.Notes, doc.Notes)
	}

	lines := make([]xmlLine, 0, len(doc.Items))
	for i, item := range doc.Items {
		lines = append(lines, line(v, i, item))
	}

	if doc.IsCreditNote() {
		out.XMLName = xml.Name{Local: "CreditNote"}
		out.Xmlns = export.NamespaceUBLCredit
		out.CreditNoteTypeCode = codelist.DocumentTypeCode(doc.Type)
		out.BillingReference = &xmlBillingReference{
			InvoiceDocumentReference: xmlDocumentReference{ID: doc.CreditedNumber},
		}
		for i := range lines {
			lines[i].CreditedQuantity, lines[i].InvoicedQuantity = lines[i].InvoicedQuantity, nil
		}
		out.CreditNoteLines = lines
	} else {
		out.XMLName = xml.Name{Local: "Invoice"}
		out.Xmlns = export.NamespaceUBLInvoice
		out.DueDate = export.Date(doc.DueAt)
		out.InvoiceTypeCode = codelist.DocumentTypeCode(doc.Type)
		out.InvoiceLines = lines
	}

	output, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, v.Fail("document", err.Error())
	}
	return []byte(xml.Header + string(output) + "\n"), nil
}

func amount(v *export.View, value string) xmlAmount {
	return xmlAmount{Value: value, CurrencyID: v.Doc.Currency}
}

// buyerReference is mandatory in Peppol (BR-PEPPOL-R003 accepts an order
// reference instead); fall back to the document number.
func buyerReference(doc *model.Document) string {
	if doc.BuyerSnapshot != nil && doc.BuyerSnapshot.Reference != "" {
		return doc.BuyerSnapshot.Reference
	}
	return doc.Number
}

func party(p *model.Party) xmlParty {
	out := xmlParty{
		PartyName: p.Name,
		PostalAddress: xmlPostalAddress{
			StreetName: p.Address.Street,
			CityName:   p.Address.City,
			PostalZone: p.Address.PostalCode,
			Country:    xmlCountry{IdentificationCode: p.Country()},
		},
		PartyLegalEntity: xmlLegalEntity{
			RegistrationName: p.DisplayName(),
			CompanyID:        p.RegistrationID,
		},
	}
	if p.Endpoint != nil && p.Endpoint.ID != "" {
		out.EndpointID = &xmlIdentifier{Value: p.Endpoint.ID, SchemeID: p.Endpoint.Scheme}
	}
	if p.HasTaxID() {
		out.PartyTaxScheme = &xmlPartyTaxScheme{
			CompanyID: p.VATID,
			TaxScheme: xmlTaxScheme{ID: codelist.TaxSchemeVAT},
		}
	}
	if p.Email != "" {
		out.Contact = &xmlContact{ElectronicMail: p.Email}
	}
	return out
}

func paymentMeans(v *export.View) *xmlPaymentMeans {
	seller := v.Doc.SellerSnapshot
	if seller.IBAN == "" {
		return nil
	}
	pm := &xmlPaymentMeans{
		PaymentMeansCode: codelist.PaymentMeansCreditTransfer,
		PaymentID:        v.Doc.Number,
		PayeeFinancialAccount: &xmlFinancialAccount{
			ID: seller.IBAN,
		},
	}
	if v.Doc.IsCreditNote() {
		pm.PaymentDueDate = export.Date(v.Doc.DueAt)
	}
	if seller.BIC != "" {
		pm.PayeeFinancialAccount.FinancialInstitutionBranch = &xmlFinancialInstitutionBranch{ID: seller.BIC}
	}
	return pm
}

func taxTotal(v *export.View) xmlTaxTotal {
	total := xmlTaxTotal{TaxAmount: amount(v, v.Amount(v.TaxTotal))}
	for _, b := range v.Breakdown {
		total.TaxSubtotal = append(total.TaxSubtotal, xmlTaxSubtotal{
			TaxableAmount: amount(v, v.Amount(b.Base)),
			TaxAmount:     amount(v, v.Amount(b.Amount)),
			TaxCategory:   taxCategory(v, money.FormatRate(b.Rate), v.LineCategory(b.Rate), true),
		})
	}
	return total
}

func taxCategory(v *export.View, rate string, category codelist.TaxCategory, withReason bool) xmlTaxCategory {
	tc := xmlTaxCategory{
		ID:        string(category),
		TaxScheme: xmlTaxScheme{ID: codelist.TaxSchemeVAT},
	}
	if category != codelist.CategoryOutOfScope {
		tc.Percent = rate
	}
	if withReason && codelist.NeedsExemptionReason(category) {
		tc.TaxExemptionReasonCode = codelist.ExemptionReasonCode(category)
		tc.TaxExemptionReason = v.ExemptionReason()
	}
	return tc
}

func line(v *export.View, i int, item model.LineItem) xmlLine {
	category := v.LineCategory(item.VATRate)
	return xmlLine{
		ID: strconv.Itoa(i + 1),
		InvoicedQuantity: &xmlQuantity{
			Value:    v.Quantity(item.Quantity),
			UnitCode: codelist.UnitCode(item.Unit),
		},
		LineExtensionAmount: amount(v, v.Amount(v.Lines[i])),
		Item: xmlItem{
			Description:           item.Description,
			Name:                  item.Title,
			ClassifiedTaxCategory: taxCategory(v, money.FormatRate(item.VATRate), category, false),
		},
		Price: xmlPrice{
			PriceAmount: amount(v, export.Price(item.UnitPrice)),
		},
	}
}
