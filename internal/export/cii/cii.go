// Package cii encodes finalized documents as UN/CEFACT Cross Industry
// Invoices following the Factur-X / ZUGFeRD EN 16931 profile, and embeds
// them into PDF files.
package cii

import (
	"encoding/xml"
	"strconv"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/model"
)

const (
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
	nsQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"

	// GuidelineEN16931 is the Factur-X EN 16931 (COMFORT) profile
	GuidelineEN16931 = "urn:cen.eu:en16931:2017"

	dateFormat102 = "102"

	schemeVAT   = "VA"
	schemeEmail = "EM"
)

// Encoder produces Factur-X CII XML
type Encoder struct {
	guideline string
}

// New creates an encoder for the EN 16931 profile. A non-empty guideline
// overrides the context parameter.
func New(guideline string) *Encoder {
	if guideline == "" {
		guideline = GuidelineEN16931
	}
	return &Encoder{guideline: guideline}
}

// Format returns export.FormatHybrid
func (e *Encoder) Format() export.Format {
	return export.FormatHybrid
}

// Encode renders doc. Credit notes use type code 381 with positive amounts
// and reference the corrected invoice number.
func (e *Encoder) Encode(doc *model.Document) ([]byte, error) {
	v, err := export.NewView(doc, export.FormatHybrid, true)
	if err != nil {
		return nil, err
	}
	if err := v.RequireParties(); err != nil {
		return nil, err
	}

	out := xmlInvoice{
		Rsm:     export.NamespaceCII,
		Ram:     nsRAM,
		Udt:     nsUDT,
		Qdt:     nsQDT,
		Context: xmlContext{GuidelineID: e.guideline},
		Document: xmlExchanged{
			ID:            doc.Number,
			TypeCode:      codelist.DocumentTypeCode(doc.Type),
			IssueDateTime: date(export.CompactDate(doc.IssuedAt)),
			Notes:         notes(v),
		},
		Transaction: xmlTransaction{
			Agreement: xmlHeaderAgreement{
				BuyerReference: doc.BuyerSnapshot.Reference,
				Seller:         party(doc.SellerSnapshot),
				Buyer:          party(doc.BuyerSnapshot),
			},
			Delivery:   delivery(doc),
			Settlement: settlement(v),
		},
	}

	for i, item := range doc.Items {
		out.Transaction.Lines = append(out.Transaction.Lines, line(v, i, item))
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

func date(value string) xmlDate {
	return xmlDate{DateTimeString: xmlDateString{Value: value, Format: dateFormat102}}
}

func notes(v *export.View) []xmlNote {
	var out []xmlNote
	if reason := v.ExemptionReason(); reason != "" {
		// AAK: exemption / reverse charge statement
		out = append(out, xmlNote{Content: reason, SubjectCode: "AAK"})
	}
	if v.Doc.Notes != "" {
		out = append(out, xmlNote{Content: v.Doc.Notes})
	}
	return out
}

func party(p *model.Party) xmlParty {
	out := xmlParty{
		Name: p.DisplayName(),
		Address: xmlAddress{
			PostcodeCode: p.Address.PostalCode,
			LineOne:      p.Address.Street,
			CityName:     p.Address.City,
			CountryID:    p.Country(),
		},
	}
	if p.RegistrationID != "" {
		out.LegalOrganization = &xmlLegalOrg{ID: &xmlIdentifier{Value: p.RegistrationID}}
	}
	if p.Email != "" {
		out.Email = &xmlURI{URIID: xmlIdentifier{Value: p.Email, SchemeID: schemeEmail}}
	}
	if p.HasTaxID() {
		out.TaxRegistrations = []xmlTaxRegistered{{ID: xmlIdentifier{Value: p.VATID, SchemeID: schemeVAT}}}
	}
	return out
}

func delivery(doc *model.Document) xmlHeaderDelivery {
	d := date(export.CompactDate(doc.IssuedAt))
	return xmlHeaderDelivery{OccurrenceDate: &d}
}

func settlement(v *export.View) xmlHeaderSettlement {
	doc := v.Doc
	s := xmlHeaderSettlement{
		PaymentReference: doc.Number,
		Currency:         doc.Currency,
		Summation: xmlSummation{
			LineTotal:     amount(v, v.Amount(v.LineTotal)),
			TaxBasisTotal: amount(v, v.Amount(v.LineTotal)),
			TaxTotal:      amount(v, v.Amount(v.TaxTotal)),
			GrandTotal:    amount(v, v.Amount(v.GrandTotal)),
			DuePayable:    amount(v, v.Amount(v.GrandTotal)),
		},
	}

	if seller := doc.SellerSnapshot; seller.IBAN != "" {
		s.PaymentMeans = &xmlPaymentMeans{
			TypeCode: codelist.PaymentMeansCreditTransfer,
			Account:  &xmlAccount{IBAN: seller.IBAN},
		}
		if seller.BIC != "" {
			s.PaymentMeans.Bank = &xmlBank{BIC: seller.BIC}
		}
	}

	for _, b := range v.Breakdown {
		category := v.LineCategory(b.Rate)
		tax := xmlHeaderTax{
			Calculated:   amount(v, v.Amount(b.Amount)),
			TypeCode:     codelist.TaxSchemeVAT,
			Basis:        amount(v, v.Amount(b.Base)),
			CategoryCode: string(category),
		}
		if category != codelist.CategoryOutOfScope {
			tax.Rate = money.FormatRate(b.Rate)
		}
		if codelist.NeedsExemptionReason(category) {
			tax.ExemptionReason = v.ExemptionReason()
			tax.ExemptionReasonCode = codelist.ExemptionReasonCode(category)
		}
		s.Taxes = append(s.Taxes, tax)
	}

	if doc.DueAt != nil && !doc.IsCreditNote() {
		s.PaymentTerms = &xmlPaymentTerms{DueDate: date(export.CompactDate(doc.DueAt))}
	}
	if doc.IsCreditNote() {
		s.ReferencedDocument = &xmlReferencedDoc{IssuerAssignedID: doc.CreditedNumber}
	}
	return s
}

func line(v *export.View, i int, item model.LineItem) xmlLine {
	category := v.LineCategory(item.VATRate)
	tax := xmlLineTax{
		TypeCode:     codelist.TaxSchemeVAT,
		CategoryCode: string(category),
	}
	if category != codelist.CategoryOutOfScope {
		tax.Rate = money.FormatRate(item.VATRate)
	}

	return xmlLine{
		LineID: strconv.Itoa(i + 1),
		Product: xmlProduct{
			Name:        item.Title,
			Description: item.Description,
		},
		Agreement: xmlLineAgreement{
			NetPrice: amount(v, export.Price(item.UnitPrice)),
		},
		Delivery: xmlLineDelivery{
			BilledQuantity: xmlQuantity{
				Value:    v.Quantity(item.Quantity),
				UnitCode: codelist.UnitCode(item.Unit),
			},
		},
		Settlement: xmlLineSettlement{
			Tax:       tax,
			LineTotal: amount(v, v.Amount(v.Lines[i])),
		},
	}
}
